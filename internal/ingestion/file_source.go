package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sundae-strategies/internal/domain"
)

const maxLineSize = 16 << 20

// FileSource reads one JSON transaction per line.
type FileSource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// Compile-time interface check.
var _ TxSource = (*FileSource)(nil)

// NewFileSource reads transactions from r.
func NewFileSource(r io.Reader) *FileSource {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineSize)
	fs := &FileSource{scanner: s}
	if c, ok := r.(io.Closer); ok {
		fs.closer = c
	}
	return fs
}

// OpenFileSource opens a JSON lines file.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	return NewFileSource(f), nil
}

// Next returns the next transaction. Blank lines are skipped.
func (s *FileSource) Next(ctx context.Context) (*domain.Tx, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var tx domain.Tx
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return &tx, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return nil, io.EOF
}

// Close closes the underlying reader if it is closable.
func (s *FileSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
