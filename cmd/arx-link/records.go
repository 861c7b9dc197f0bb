package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arxos-protocol/arxos-go/pkg/record"
)

// recordFile is the YAML form of a record batch:
//
//	records:
//	  - building: 0x1234
//	    kind: SMOKE_DETECTOR
//	    x: 2000
//	    y: 1500
//	    z: 300
//	    props: "01000000"
type recordFile struct {
	Records []recordEntry `yaml:"records"`
}

type recordEntry struct {
	Building uint16 `yaml:"building"`
	Kind     string `yaml:"kind"`
	X        uint16 `yaml:"x"`
	Y        uint16 `yaml:"y"`
	Z        uint16 `yaml:"z"`
	Props    string `yaml:"props,omitempty"`
}

func (e recordEntry) toRecord() (record.Record, error) {
	kind, err := record.ParseKind(e.Kind)
	if err != nil {
		return record.Record{}, err
	}
	r := record.New(e.Building, kind, e.X, e.Y, e.Z)

	if e.Props != "" {
		props, err := hex.DecodeString(e.Props)
		if err != nil || len(props) != len(r.Properties) {
			return record.Record{}, fmt.Errorf("props must be %d hex bytes, got %q", len(r.Properties), e.Props)
		}
		copy(r.Properties[:], props)
	}
	return r, nil
}

func entryFromRecord(r record.Record) recordEntry {
	e := recordEntry{
		Building: r.BuildingID,
		Kind:     r.Kind.String(),
		X:        r.X,
		Y:        r.Y,
		Z:        r.Z,
	}
	if r.Properties != ([4]byte{}) {
		e.Props = hex.EncodeToString(r.Properties[:])
	}
	if _, err := record.ParseKind(e.Kind); err != nil {
		e.Kind = fmt.Sprintf("0x%02x", uint8(r.Kind))
	}
	return e
}

// readRecords decodes a YAML record batch.
func readRecords(r io.Reader) ([]record.Record, error) {
	var f recordFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode records: %w", err)
	}

	out := make([]record.Record, 0, len(f.Records))
	for i, e := range f.Records {
		rec, err := e.toRecord()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// loadRecords reads a YAML record batch from path, or stdin for "-".
func loadRecords(path string) ([]record.Record, error) {
	if path == "-" {
		return readRecords(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRecords(f)
}

// writeRecords encodes records as a YAML record batch.
func writeRecords(w io.Writer, records []record.Record) error {
	f := recordFile{Records: make([]recordEntry, 0, len(records))}
	for _, r := range records {
		f.Records = append(f.Records, entryFromRecord(r))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// demoRecords returns n smoke detector records on a 1 m grid, for link tests.
func demoRecords(building uint16, n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = record.New(building, record.KindSmokeDetector, uint16(i%50)*1000, uint16(i/50)*1000, 2700)
	}
	return out
}
