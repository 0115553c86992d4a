// Package files stores transcripts as plain files: a text transcript, a
// timing summary and a per-identity CSV table, all keyed by username.
package files

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
	"qualitative-interview/internal/domain/ports/repository"
)

// TableHeader is the column row of every tabular log.
var TableHeader = []string{"Timestamp", "Username", "Role", "Message"}

const (
	filePerm = 0o644
	dirPerm  = 0o755

	backupStamp = "2006_01_02_15_04_05"
)

// Layout places the files of one sink. With Backup set, file names carry the
// session start time so each attempt keeps its own snapshot, and no table is
// written.
type Layout struct {
	TranscriptsDir string
	TimesDir       string
	TablesDir      string
	Backup         bool
}

var _ repository.TranscriptSink = (*Store)(nil)

type Store struct {
	name   string
	layout Layout
}

// NewStore creates the directories of layout.
func NewStore(name string, layout Layout) (*Store, error) {
	if layout.TranscriptsDir == "" || layout.TimesDir == "" {
		return nil, fmt.Errorf("files store %s: transcripts and times dirs are required", name)
	}
	for _, dir := range []string{layout.TranscriptsDir, layout.TimesDir, layout.TablesDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("files store %s: %w", name, err)
		}
	}
	return &Store{name: name, layout: layout}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) transcriptPath(username string, start time.Time) string {
	if s.layout.Backup {
		return filepath.Join(s.layout.TranscriptsDir, username+"_transcript_started_"+start.UTC().Format(backupStamp)+".txt")
	}
	return filepath.Join(s.layout.TranscriptsDir, username+".txt")
}

func (s *Store) timingPath(username string, start time.Time) string {
	if s.layout.Backup {
		return filepath.Join(s.layout.TimesDir, username+"_time_started_"+start.UTC().Format(backupStamp)+".txt")
	}
	return filepath.Join(s.layout.TimesDir, username+".txt")
}

func (s *Store) tablePath(username string) string {
	return filepath.Join(s.layout.TablesDir, username+"_interview.csv")
}

// Write replaces the transcript, timing and table files for rec.Username.
// Each file is swapped in whole, so readers never see a partial record.
func (s *Store) Write(ctx context.Context, rec *model.TranscriptRecord) error {
	if !model.ValidUsername(rec.Username) {
		return domain.ErrInvalidIdentity
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := rec.Timing.StartTime

	if s.layout.TablesDir != "" && !s.layout.Backup {
		if err := writeTable(s.tablePath(rec.Username), rec); err != nil {
			return err
		}
	}
	if err := atomicwriter.WriteFile(s.timingPath(rec.Username, start), []byte(rec.Timing.TimingText()), filePerm); err != nil {
		return fmt.Errorf("write timing: %w", err)
	}
	// transcript last: its presence is the completion marker
	if err := atomicwriter.WriteFile(s.transcriptPath(rec.Username, start), []byte(rec.TranscriptText()), filePerm); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

func writeTable(path string, rec *model.TranscriptRecord) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(TableHeader)
	for _, m := range rec.Messages {
		_ = w.Write(tableRow(rec.Username, m))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	if err := atomicwriter.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

func tableRow(username string, m model.Message) []string {
	return []string{m.CreatedAt.UTC().Format(time.RFC3339), username, string(m.Role), m.Content}
}

// Exists reports whether a transcript file for username is present.
func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	if !model.ValidUsername(username) {
		return false, domain.ErrInvalidIdentity
	}
	if s.layout.Backup {
		matches, err := filepath.Glob(filepath.Join(s.layout.TranscriptsDir, username+"_transcript_started_*.txt"))
		if err != nil {
			return false, err
		}
		return len(matches) > 0, nil
	}
	_, err := os.Stat(s.transcriptPath(username, time.Time{}))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Load reads the record for username back from its table and timing files.
func (s *Store) Load(ctx context.Context, username string) (*model.TranscriptRecord, error) {
	if !model.ValidUsername(username) {
		return nil, domain.ErrInvalidIdentity
	}
	if s.layout.Backup || s.layout.TablesDir == "" {
		return nil, fmt.Errorf("files store %s: load needs a table layout", s.name)
	}
	f, err := os.Open(s.tablePath(username))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	rec := &model.TranscriptRecord{Username: username}
	for i, row := range rows {
		if i == 0 || len(row) != len(TableHeader) {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, row[0])
		rec.Messages = append(rec.Messages, model.Message{
			Role:      model.Role(row[2]),
			Content:   row[3],
			Seq:       len(rec.Messages),
			CreatedAt: ts,
		})
	}

	if b, err := os.ReadFile(s.timingPath(username, time.Time{})); err == nil {
		rec.Timing = parseTiming(string(b))
	}
	return rec, nil
}

func parseTiming(text string) model.TimingRecord {
	var t model.TimingRecord
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "Start time (UTC): "):
			if ts, err := time.Parse(model.TimingLayout, strings.TrimPrefix(line, "Start time (UTC): ")); err == nil {
				t.StartTime = ts
			}
		case strings.HasPrefix(line, "Interview duration (minutes): "):
			fmt.Sscanf(strings.TrimPrefix(line, "Interview duration (minutes): "), "%f", &t.DurationMinutes)
		}
	}
	return t
}
