// Package persistence mirrors the petition collection to a single JSON file.
// Every save rewrites the whole document.
package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ASHISH26940/petitiondesk/internal/petition"
)

// Document is the canonical on-disk shape: {"petitions": [...]} in insertion order.
type Document struct {
	Petitions []petition.Record `json:"petitions"`
}

// DecodeError means the file exists but does not hold a valid document.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// File loads and saves the collection at a fixed path.
// It does no locking of its own; callers serialize Save.
type File struct {
	path string
}

// NewFile returns a File bound to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the destination path.
func (f *File) Path() string {
	return f.path
}

// Load reads the whole collection. A missing file yields an error matching
// fs.ErrNotExist. Anything other than an object holding exactly a
// "petitions" key, such as an id-keyed map, yields a *DecodeError.
func (f *File) Load() ([]petition.Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Petitions json.RawMessage `json:"petitions"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Path: f.path, Err: err}
	}
	if len(raw.Petitions) == 0 {
		return nil, &DecodeError{Path: f.path, Err: errors.New(`missing "petitions" key`)}
	}

	var records []petition.Record
	if err := json.Unmarshal(raw.Petitions, &records); err != nil {
		return nil, &DecodeError{Path: f.path, Err: err}
	}
	if records == nil {
		return []petition.Record{}, nil
	}
	return records, nil
}

// Save writes records to a temporary file next to the destination, syncs
// it and renames it into place, so readers see either the old or the new
// document and never a truncated one.
func (f *File) Save(records []petition.Record) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}

// Encode renders records in the canonical document format.
func Encode(records []petition.Record) ([]byte, error) {
	if records == nil {
		records = []petition.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Petitions: records}); err != nil {
		return nil, fmt.Errorf("encode petitions: %w", err)
	}
	return buf.Bytes(), nil
}
