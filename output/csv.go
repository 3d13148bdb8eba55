// Package output serializes scored records as headerless CSV.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/maastricht-university/chatrisk/model"
)

// GroupSize is how many consecutive rows share a group index.
const GroupSize = 10

// TimeLayout is used for the time column; times are written in UTC.
const TimeLayout = time.RFC3339Nano

// Row is one serialized output line.
func Row(i int, r model.ScoredRecord) ([]string, error) {
	kws := r.Keywords
	if kws == nil {
		kws = []model.Keyword{}
	}
	kwJSON, err := json.Marshal(kws)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	return []string{
		strconv.Itoa(i / GroupSize),
		r.Time.UTC().Format(TimeLayout),
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		r.Speaker,
		string(kwJSON),
	}, nil
}

// Write emits one row per record in input order. Callers sort by time first.
func Write(w io.Writer, recs []model.ScoredRecord) error {
	cw := csv.NewWriter(w)
	for i, r := range recs {
		row, err := Row(i, r)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes recs to path via a temp file in the same directory and a
// rename, so a failed run never leaves a truncated file behind.
func WriteFile(path string, recs []model.ScoredRecord) error {
	var buf bytes.Buffer
	if err := Write(&buf, recs); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp_records_*.csv")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
