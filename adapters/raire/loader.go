// Package raire imports RAIRE-style JSON assertions for instant-runoff
// contests into the domain representation the assertion factories consume.
package raire

import (
	"encoding/json"
	"io"
	"os"

	"gorla/domain/audit"
	"gorla/internal/errors"
)

// document is the accepted file shape: either a bare array of assertion
// records, or an object with an "audits" list whose entries carry the
// contest and its assertions.
type document struct {
	Audits []contestAssertions `json:"audits"`
}

type contestAssertions struct {
	Contest    string               `json:"contest"`
	Winner     string               `json:"winner,omitempty"`
	Assertions []audit.IRVAssertion `json:"assertions"`
}

// Load reads assertion records from r. Both a bare JSON array and the
// RAIRE "audits" wrapper are accepted; with the wrapper, assertions from all
// audits are concatenated. Assertion kinds are validated here so a bad file
// fails at import, not at assertion construction.
func Load(r io.Reader) ([]audit.IRVAssertion, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.ParseError("reading RAIRE assertions", err)
	}

	var records []audit.IRVAssertion
	if err := json.Unmarshal(raw, &records); err != nil {
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.ParseError("decoding RAIRE assertions", err)
		}
		for _, a := range doc.Audits {
			records = append(records, a.Assertions...)
		}
	}

	for _, rec := range records {
		switch rec.Type {
		case audit.AssertWinnerOnly, audit.AssertIRVElimination:
		default:
			return nil, errors.UnsupportedAssertionType(string(rec.Type))
		}
		if rec.Winner == "" || rec.Loser == "" {
			return nil, errors.InvalidInput("RAIRE assertion is missing winner or loser")
		}
	}
	return records, nil
}

// LoadFile reads assertion records from a JSON file.
func LoadFile(path string) ([]audit.IRVAssertion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseError("opening RAIRE assertion file", err)
	}
	defer f.Close()
	return Load(f)
}
