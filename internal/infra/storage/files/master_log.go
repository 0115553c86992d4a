package files

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/repository"
)

var _ repository.MessageLog = (*MasterLog)(nil)

// MasterLog is the shared append-only table of every committed message
// across identities. Appends are serialised within the process and each one
// opens, writes and closes the file.
type MasterLog struct {
	mu   sync.Mutex
	path string
}

func NewMasterLog(path string) (*MasterLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("master log: %w", err)
		}
	}
	return &MasterLog{path: path}, nil
}

func (l *MasterLog) Append(ctx context.Context, username string, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open master log: %w", err)
	}
	w := csv.NewWriter(f)
	if fresh {
		_ = w.Write(TableHeader)
	}
	_ = w.Write(tableRow(username, msg))
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append master log: %w", err)
	}
	return f.Close()
}
