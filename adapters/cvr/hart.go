package cvr

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"

	"gorla/internal/errors"
)

// Hart Intercivic CVR XML layout (namespace http://tempuri.org/CVRDesign.xsd).
// Write-in options carry no Name node.
type hartCVR struct {
	XMLName       xml.Name      `xml:"Cvr"`
	BatchSequence string        `xml:"BatchSequence"`
	SheetNumber   string        `xml:"SheetNumber"`
	CvrGuid       string        `xml:"CvrGuid"`
	PrecinctSplit hartPrecinct  `xml:"PrecinctSplit"`
	Contests      []hartContest `xml:"Contests>Contest"`
}

type hartPrecinct struct {
	Name string `xml:"Name"`
	ID   string `xml:"Id"`
}

type hartContest struct {
	Name       string       `xml:"Name"`
	Undervotes string       `xml:"Undervotes"`
	Options    []hartOption `xml:"Options>Option"`
}

type hartOption struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

// WriteInName is recorded for Hart options that carry no candidate name.
const WriteInName = "WriteIn"

// ReadHartCVR parses a single Hart CVR XML document. The record id is the
// batch sequence joined to the sheet number, Hart's format.
func ReadHartCVR(r io.Reader) (*CVR, error) {
	var doc hartCVR
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.ParseError("reading Hart CVR", err)
	}
	record := New(doc.BatchSequence+"_"+doc.SheetNumber, nil)
	for _, contest := range doc.Contests {
		record.AddContest(contest.Name)
		for _, opt := range contest.Options {
			name := opt.Name
			if name == "" {
				name = WriteInName
			}
			record.SetVote(contest.Name, name, 1)
		}
	}
	return record, nil
}

// ReadHartDirectory reads every file in a directory of Hart CVR XMLs.
func ReadHartDirectory(dir string) ([]*CVR, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.ParseError("listing Hart CVR directory", err)
	}
	var records []*CVR
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.ParseError("opening Hart CVR file", err)
		}
		record, err := ReadHartCVR(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "Hart CVR file %s", entry.Name())
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadHartZip reads Hart CVR XMLs from a zip archive. limit caps the number
// of files read; limit <= 0 reads everything.
func ReadHartZip(path string, limit int) ([]*CVR, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.ParseError("opening Hart CVR archive", err)
	}
	defer zr.Close()
	if limit <= 0 || limit > len(zr.File) {
		limit = len(zr.File)
	}
	records := make([]*CVR, 0, limit)
	for _, zf := range zr.File[:limit] {
		f, err := zf.Open()
		if err != nil {
			return nil, errors.ParseError("opening archived Hart CVR", err)
		}
		record, err := ReadHartCVR(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "Hart CVR file %s", zf.Name)
		}
		records = append(records, record)
	}
	return records, nil
}
