package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// FilePrefix identifies transcript files inside the store directory.
	FilePrefix = "transcript_"
	fileSuffix = ".json"
)

// Store writes finished call transcripts to a directory, one file per call.
// Files are written exactly once and treated as immutable afterwards.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string { return s.dir }

// Write persists the record under transcript_<room>_<timestamp>.json and
// returns the full path. Failures here risk silent data loss upstream, so
// every stage is wrapped with enough context to diagnose.
func (s *Store) Write(roomName string, rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir %s: %w", s.dir, err)
	}

	name := fmt.Sprintf("%s%s_%s%s", FilePrefix, roomName, Timestamp(s.now()), fileSuffix)
	path := filepath.Join(s.dir, name)

	data, err := rec.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal transcript for %s: %w", roomName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript %s: %w", path, err)
	}
	return path, nil
}

// Read loads one stored transcript file.
func (s *Store) Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read transcript %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	return rec, nil
}

// List returns the transcript filenames in the store directory, sorted by
// name (the embedded timestamps make that chronological per room).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list transcripts in %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, FilePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
