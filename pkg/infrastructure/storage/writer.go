package storage

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/WangYihang/lazyscan/pkg/domain/entity"
)

// FindingWriter implements repository.FindingWriter as JSON lines
type FindingWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewFindingWriter creates a writer on filename, or on stdout for "-"
func NewFindingWriter(filename string) (*FindingWriter, error) {
	if filename == "-" || filename == "" {
		return NewFindingEncoder(os.Stdout), nil
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &FindingWriter{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// NewFindingEncoder creates a writer on w, which is never closed
func NewFindingEncoder(w io.Writer) *FindingWriter {
	return &FindingWriter{encoder: json.NewEncoder(w)}
}

// Write writes a single finding
func (w *FindingWriter) Write(finding entity.Finding) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.encoder.Encode(finding)
}

// Report writes the finding, so the writer can be used as a reporter
func (w *FindingWriter) Report(finding entity.Finding) error {
	return w.Write(finding)
}

// Flush ensures all buffered data is written
func (w *FindingWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the writer
func (w *FindingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
