package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/fsutil"
	"github.com/krnkaavya03/StuPred/internal/schema"
)

// Header returns the dataset column names.
func Header() []string {
	header := make([]string, 0, schema.NumFeatures+2)
	header = append(header, schema.IDColumn)
	header = append(header, schema.FeatureNames()...)
	return append(header, schema.LabelColumn)
}

// Encode writes records as CSV with a header row.
func Encode(w io.Writer, records []schema.StudentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, schema.NumFeatures+2)
	for _, r := range records {
		row[0] = r.StudentID
		for i, v := range r.Values() {
			row[i+1] = strconv.Itoa(v)
		}
		row[len(row)-1] = strconv.Itoa(r.Success)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.StudentID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSV replaces the file at path with the encoded records. The write is
// atomic; a failed write leaves any previous file in place.
func WriteCSV(path string, records []schema.StudentRecord) error {
	err := fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, records)
	})
	if err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("rows", len(records)).
		Msg("Dataset written")
	return nil
}

// Decode parses a dataset. The header must match exactly, every value must be
// an integer, labels must be 0 or 1 and IDs must be unique. Labels are taken
// as they are; the rule is not re-applied.
func Decode(r io.Reader) ([]schema.StudentRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = schema.NumFeatures + 2
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedDataset)
		}
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedDataset, err)
	}
	want := Header()
	for i := range want {
		if header[i] != want[i] {
			return nil, fmt.Errorf("%w: column %d is %q, expected %q", ErrMalformedDataset, i+1, header[i], want[i])
		}
	}

	var records []schema.StudentRecord
	seen := make(map[string]struct{})
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataset, err)
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedDataset, line, err)
		}
		if _, dup := seen[rec.StudentID]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate %s %q", ErrMalformedDataset, line, schema.IDColumn, rec.StudentID)
		}
		seen[rec.StudentID] = struct{}{}
		records = append(records, rec)
	}

	return records, nil
}

// ReadCSV loads the dataset stored at path.
func ReadCSV(path string) ([]schema.StudentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return records, nil
}

func parseRow(row []string) (schema.StudentRecord, error) {
	if row[0] == "" {
		return schema.StudentRecord{}, fmt.Errorf("empty %s", schema.IDColumn)
	}

	var values [schema.NumFeatures]int
	for i := range values {
		v, err := strconv.Atoi(row[i+1])
		if err != nil {
			return schema.StudentRecord{}, fmt.Errorf("%s: %q is not an integer", schema.Features[i], row[i+1])
		}
		values[i] = v
	}

	label, err := strconv.Atoi(row[len(row)-1])
	if err != nil || (label != 0 && label != 1) {
		return schema.StudentRecord{}, fmt.Errorf("%s: %q is not 0 or 1", schema.LabelColumn, row[len(row)-1])
	}

	rec := schema.StudentRecord{StudentID: row[0], Success: label}
	rec.SetValues(values)
	return rec, nil
}
