package files

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"qualitative-interview/internal/domain"
	"qualitative-interview/internal/domain/model"
)

func newTestStore(t *testing.T) (*Store, Layout) {
	t.Helper()
	root := t.TempDir()
	layout := Layout{
		TranscriptsDir: filepath.Join(root, "transcripts"),
		TimesDir:       filepath.Join(root, "times"),
		TablesDir:      filepath.Join(root, "tables"),
	}
	s, err := NewStore("files", layout)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, layout
}

func record(username string, start time.Time, contents ...string) *model.TranscriptRecord {
	s := model.NewSession("s-"+username, username, start)
	for i, c := range contents {
		role := model.RoleInterviewer
		if i%2 == 1 {
			role = model.RoleRespondent
		}
		s.Append(role, c, start.Add(time.Duration(i)*time.Second))
	}
	return s.Snapshot(start.Add(90 * time.Second))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestStore_WriteAllFiles(t *testing.T) {
	ctx := context.Background()
	s, layout := newTestStore(t)
	start := time.Date(2025, 3, 4, 9, 5, 7, 0, time.UTC)

	rec := record("alice", start, "Hello!", "Because I love math, especially \"proofs\", and more")
	if err := s.Write(ctx, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	txt := readFile(t, filepath.Join(layout.TranscriptsDir, "alice.txt"))
	want := "Interviewer: Hello!\nRespondent: Because I love math, especially \"proofs\", and more\n"
	if txt != want {
		t.Fatalf("transcript mismatch:\n got %q\nwant %q", txt, want)
	}

	timing := readFile(t, filepath.Join(layout.TimesDir, "alice.txt"))
	if timing != "Start time (UTC): 04/03/2025 09:05:07\nInterview duration (minutes): 1.50\n" {
		t.Fatalf("unexpected timing file %q", timing)
	}

	f, err := os.Open(filepath.Join(layout.TablesDir, "alice_interview.csv"))
	if err != nil {
		t.Fatalf("open table: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse table: %v", err)
	}
	if len(rows) != 3 || strings.Join(rows[0], ",") != "Timestamp,Username,Role,Message" {
		t.Fatalf("unexpected table %v", rows)
	}
	if rows[2][1] != "alice" || rows[2][2] != "Respondent" || rows[2][3] != rec.Messages[1].Content {
		t.Fatalf("unexpected row %v", rows[2])
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	s, layout := newTestStore(t)
	start := time.Now()

	_ = s.Write(ctx, record("alice", start, "Hello!", "one", "two", "three"))
	if err := s.Write(ctx, record("alice", start, "Hello!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if txt := readFile(t, filepath.Join(layout.TranscriptsDir, "alice.txt")); txt != "Interviewer: Hello!\n" {
		t.Fatalf("expected overwritten transcript, got %q", txt)
	}
	entries, _ := os.ReadDir(layout.TranscriptsDir)
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestStore_ExistsAndLoad(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	start := time.Date(2025, 3, 4, 9, 5, 7, 0, time.UTC)

	if ok, err := s.Exists(ctx, "alice"); err != nil || ok {
		t.Fatalf("expected no record, ok=%v err=%v", ok, err)
	}
	if _, err := s.Load(ctx, "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = s.Write(ctx, record("alice", start, "Hello!", "Hi,\nmultiline"))
	if ok, err := s.Exists(ctx, "alice"); err != nil || !ok {
		t.Fatalf("expected record, ok=%v err=%v", ok, err)
	}
	got, err := s.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "Hi,\nmultiline" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if !got.Timing.StartTime.Equal(start) || got.Timing.DurationMinutes != 1.5 {
		t.Fatalf("unexpected timing %+v", got.Timing)
	}
}

func TestStore_RejectsUnsafeUsername(t *testing.T) {
	s, _ := newTestStore(t)
	rec := record("alice", time.Now(), "Hello!")
	rec.Username = "../escape"
	if err := s.Write(context.Background(), rec); !errors.Is(err, domain.ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestStore_BackupLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewStore("backup", Layout{TranscriptsDir: dir, TimesDir: dir, Backup: true})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	start := time.Date(2025, 3, 4, 9, 5, 7, 0, time.UTC)
	if err := s.Write(ctx, record("alice", start, "Hello!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range []string{
		"alice_transcript_started_2025_03_04_09_05_07.txt",
		"alice_time_started_2025_03_04_09_05_07.txt",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if ok, _ := s.Exists(ctx, "alice"); !ok {
		t.Fatal("expected backup to exist")
	}
	if ok, _ := s.Exists(ctx, "bob"); ok {
		t.Fatal("unexpected backup for bob")
	}
}

func TestStore_ConcurrentIdentitiesStayIsolated(t *testing.T) {
	ctx := context.Background()
	s, layout := newTestStore(t)
	start := time.Now()

	var wg sync.WaitGroup
	for _, name := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			contents := []string{}
			for i := 0; i < 25; i++ {
				contents = append(contents, fmt.Sprintf("%s line %d", name, i))
				if err := s.Write(ctx, record(name, start, contents...)); err != nil {
					t.Errorf("write %s: %v", name, err)
					return
				}
			}
		}(name)
	}
	wg.Wait()

	for _, name := range []string{"alice", "bob"} {
		txt := readFile(t, filepath.Join(layout.TranscriptsDir, name+".txt"))
		lines := strings.Split(strings.TrimSuffix(txt, "\n"), "\n")
		if len(lines) != 25 {
			t.Fatalf("%s: expected 25 lines, got %d", name, len(lines))
		}
		for _, l := range lines {
			if !strings.Contains(l, ": "+name+" line ") {
				t.Fatalf("%s transcript contains foreign line %q", name, l)
			}
		}
	}
}

func TestMasterLog_AppendsWithSingleHeader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs", "master_log.csv")
	l, err := NewMasterLog(path)
	if err != nil {
		t.Fatalf("NewMasterLog: %v", err)
	}

	var wg sync.WaitGroup
	for _, name := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				msg := model.Message{Role: model.RoleRespondent, Content: fmt.Sprintf("%s, msg %d", name, i), CreatedAt: time.Now()}
				if err := l.Append(ctx, name, msg); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}(name)
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 21 {
		t.Fatalf("expected header + 20 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "Timestamp,Username,Role,Message" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	for _, r := range rows[1:] {
		if !strings.HasPrefix(r[3], r[1]+",") {
			t.Fatalf("row mixes identities: %v", r)
		}
	}
}
