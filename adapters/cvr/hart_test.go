package cvr

import (
	"strings"
	"testing"
)

const hartSample = `<?xml version="1.0" encoding="utf-8"?>
<Cvr xmlns="http://tempuri.org/CVRDesign.xsd">
  <BatchSequence>262</BatchSequence>
  <SheetNumber>1</SheetNumber>
  <CvrGuid>abc-123</CvrGuid>
  <PrecinctSplit>
    <Name>100</Name>
    <Id>65</Id>
  </PrecinctSplit>
  <Contests>
    <Contest>
      <Name>Mayor</Name>
      <Options>
        <Option>
          <Name>Alice</Name>
          <Value>1</Value>
        </Option>
      </Options>
    </Contest>
    <Contest>
      <Name>Proposition 1</Name>
      <Undervotes>1</Undervotes>
      <Options/>
    </Contest>
    <Contest>
      <Name>School Board</Name>
      <Options>
        <Option>
          <Value>1</Value>
        </Option>
      </Options>
    </Contest>
  </Contests>
</Cvr>`

func TestReadHartCVR(t *testing.T) {
	record, err := ReadHartCVR(strings.NewReader(hartSample))
	if err != nil {
		t.Fatalf("ReadHartCVR: %v", err)
	}

	if record.ID() != "262_1" {
		t.Errorf("id = %q, want 262_1", record.ID())
	}
	if record.VoteFor("Mayor", "Alice") != 1 {
		t.Error("missing Mayor vote for Alice")
	}
	// Undervoted contest is present but carries no votes.
	if !record.HasContest("Proposition 1") {
		t.Error("undervoted contest should still be on the record")
	}
	if record.VoteFor("Proposition 1", "Yes") != 0 {
		t.Error("undervoted contest should have no votes")
	}
	// Options without a Name node are write-ins.
	if record.VoteFor("School Board", WriteInName) != 1 {
		t.Error("nameless option should be recorded as a write-in")
	}
}

func TestReadHartCVR_Malformed(t *testing.T) {
	if _, err := ReadHartCVR(strings.NewReader("not xml")); err == nil {
		t.Error("expected error for malformed XML")
	}
}
