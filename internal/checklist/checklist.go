// Package checklist reads and updates the markdown task file that drives a
// ralph run.
//
// A task line is any line whose trimmed text starts with "- [ ]" (incomplete)
// or "- [x]" (complete). Everything else in the file is carried through
// untouched. The description text is the only key: duplicates are not
// merged and a completion applies to the first textual match only.
package checklist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fentz26/ralph/internal/models"
)

// Store owns the on-disk checklist file.
type Store struct {
	path string
}

// New creates a Store for the checklist at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file backing this store.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the checklist file is present.
func (s *Store) Exists() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat checklist: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s is a directory", ErrNotFound, s.path)
	}
	return true, nil
}

// Load returns the full checklist text.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return "", fmt.Errorf("read checklist: %w", err)
	}
	return string(data), nil
}

// Save overwrites the checklist with content. The file must already exist;
// the write goes through a temp file in the same directory and a rename so
// readers never observe a partial document.
func (s *Store) Save(content string) error {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return fmt.Errorf("stat checklist: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp checklist: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp checklist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp checklist: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	return nil
}

// NextIncomplete loads the checklist and returns the first incomplete
// description. ok is false when every task is done.
func (s *Store) NextIncomplete() (description string, ok bool, err error) {
	content, err := s.Load()
	if err != nil {
		return "", false, err
	}
	description, ok = NextIncomplete(content)
	return description, ok, nil
}

// MarkComplete flips the first "- [ ] <description>" to "- [x] <description>".
// changed is false when no incomplete entry matched; the file is then left
// untouched and no error is returned.
func (s *Store) MarkComplete(description string) (changed bool, err error) {
	content, err := s.Load()
	if err != nil {
		return false, err
	}
	updated, changed := Complete(content, description)
	if !changed {
		return false, nil
	}
	if err := s.Save(updated); err != nil {
		return false, err
	}
	return true, nil
}

// Counts recomputes progress from the current file contents.
func (s *Store) Counts() (models.Progress, error) {
	content, err := s.Load()
	if err != nil {
		return models.Progress{}, err
	}
	return Count(content), nil
}

// Entries returns every task line in file order.
func (s *Store) Entries() ([]models.Entry, error) {
	content, err := s.Load()
	if err != nil {
		return nil, err
	}
	return Entries(content), nil
}

// NextIncomplete scans content line by line and returns the description of
// the first incomplete entry.
func NextIncomplete(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		if desc, ok := describe(line, models.IncompleteMarker); ok {
			return desc, true
		}
	}
	return "", false
}

// Complete returns content with the first incomplete occurrence of
// description replaced by its complete form.
func Complete(content, description string) (string, bool) {
	if description == "" {
		return content, false
	}
	from := models.IncompleteMarker + " " + description
	if !strings.Contains(content, from) {
		return content, false
	}
	to := models.CompleteMarker + " " + description
	return strings.Replace(content, from, to, 1), true
}

// Count tallies complete and incomplete markers across the whole content.
func Count(content string) models.Progress {
	return models.Progress{
		Completed: strings.Count(content, models.CompleteMarker),
		Remaining: strings.Count(content, models.IncompleteMarker),
	}
}

// Entries parses every task line in content.
func Entries(content string) []models.Entry {
	var entries []models.Entry
	for i, line := range strings.Split(content, "\n") {
		if desc, ok := describe(line, models.IncompleteMarker); ok {
			entries = append(entries, models.Entry{Line: i + 1, Description: desc})
			continue
		}
		if desc, ok := describe(line, models.CompleteMarker); ok {
			entries = append(entries, models.Entry{Line: i + 1, Description: desc, Done: true})
		}
	}
	return entries
}

// describe strips marker and the single space that must follow it. A line
// with no description, or with any other separator, is not a task.
func describe(line, marker string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, marker+" ") {
		return "", false
	}
	rest := trimmed[len(marker)+1:]
	if rest == "" {
		return "", false
	}
	return rest, true
}
