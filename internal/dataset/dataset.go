// Package dataset reads an uploaded competitor file into a short preview and
// into the transport form the backend expects. It never interprets rows.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PreviewLines is the number of CSV lines shown before submission.
const PreviewLines = 5

// ErrUnsupported is returned for files whose extension is not .csv, .xlsx or .xls.
var ErrUnsupported = errors.New("unsupported dataset type (expected .csv, .xlsx or .xls)")

// Kind classifies a dataset by file extension only.
type Kind string

const (
	KindCSV         Kind = "csv"
	KindSpreadsheet Kind = "spreadsheet"
	KindUnsupported Kind = ""
)

// KindOf returns the dataset kind for filename.
func KindOf(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return KindCSV
	case ".xlsx", ".xls":
		return KindSpreadsheet
	default:
		return KindUnsupported
	}
}

// Source is a selected file that can be read more than once: once for the
// preview and again in full on submission.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a dataset from disk.
type FileSource string

func (f FileSource) Name() string { return filepath.Base(string(f)) }

func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// BytesSource holds an uploaded dataset in memory.
type BytesSource struct {
	Filename string
	Data     []byte
}

func (b BytesSource) Name() string { return b.Filename }

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// Payload is a dataset ready to be embedded in a metrics request.
type Payload struct {
	Content  string
	Filename string
}

// Preview returns the lines shown to the user after a file is selected.
func Preview(src Source) ([]string, error) {
	switch KindOf(src.Name()) {
	case KindCSV:
		rc, err := src.Open()
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer rc.Close()
		return headLines(rc, PreviewLines)
	case KindSpreadsheet:
		return []string{"Excel file uploaded: " + src.Name()}, nil
	default:
		return nil, ErrUnsupported
	}
}

// PreviewAsync computes the preview on its own goroutine and calls done
// exactly once with the result.
func PreviewAsync(ctx context.Context, src Source, done func([]string, error)) {
	go func() {
		lines, err := Preview(src)
		if err == nil {
			err = ctx.Err()
		}
		done(lines, err)
	}()
}

// Load reads the whole file: CSV as UTF-8 text, spreadsheets as base64.
func Load(src Source) (Payload, error) {
	kind := KindOf(src.Name())
	if kind == KindUnsupported {
		return Payload{}, ErrUnsupported
	}
	rc, err := src.Open()
	if err != nil {
		return Payload{}, fmt.Errorf("open dataset: %w", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return Payload{}, fmt.Errorf("read dataset: %w", err)
	}
	content := string(raw)
	if kind == KindSpreadsheet {
		content = base64.StdEncoding.EncodeToString(raw)
	}
	return Payload{Content: content, Filename: src.Name()}, nil
}

func headLines(r io.Reader, n int) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := make([]string, 0, n)
	for len(out) < n && sc.Scan() {
		out = append(out, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return out, nil
}
