package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"burnwatch/internal/model"
)

// Archive appends enriched burn records to a JSONL file, one per line. It is
// an audit trail independent of the HistoryStore backing; it never serves
// replay reads.
type Archive struct {
	path string
	mu   sync.Mutex
}

func NewArchive(path string) *Archive {
	return &Archive{path: path}
}

// Append writes one record as a JSON line.
func (a *Archive) Append(rec model.EnrichedBurnRecord) error {
	dir := filepath.Dir(a.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	return nil
}
