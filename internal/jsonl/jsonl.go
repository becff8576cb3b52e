// Package jsonl reads and writes habit records as JSON Lines files.
// Writes are atomic: records go to a temp file that is synced and then
// renamed over the target.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/habits/pkg/types"
)

// ReadRaw reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped and counted.
func ReadRaw(path string) ([]json.RawMessage, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		records []json.RawMessage
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			skipped++
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, skipped, nil
}

// WriteRaw atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func WriteRaw(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// WriteHabits writes one habit document per line.
func WriteHabits(path string, habits []types.Habit) error {
	records := make([]json.RawMessage, 0, len(habits))
	for _, h := range habits {
		data, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("encoding habit %s: %w", h.ID, err)
		}
		records = append(records, data)
	}
	return WriteRaw(path, records)
}

// ReadHabits reads habit documents. Lines that are not JSON or do not
// describe a valid habit are skipped and counted.
func ReadHabits(path string) ([]types.Habit, int, error) {
	records, skipped, err := ReadRaw(path)
	if err != nil {
		return nil, 0, err
	}
	habits := make([]types.Habit, 0, len(records))
	for _, rec := range records {
		var h types.Habit
		if err := json.Unmarshal(rec, &h); err != nil || h.Validate() != nil {
			skipped++
			continue
		}
		habits = append(habits, h)
	}
	return habits, skipped, nil
}
