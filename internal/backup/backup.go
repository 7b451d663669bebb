// Package backup reads and writes ledger snapshots as timestamped JSON files.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "cashledger_backup_"
	fileSuffix = ".json"
	stampFmt   = "20060102_150405"
)

var (
	// ErrNoBackup is returned when a directory holds no backup file.
	ErrNoBackup = errors.New("no backup found")
	// ErrInvalidName is returned for names that are not backup file names.
	ErrInvalidName = errors.New("invalid backup file name")
)

// Snapshot is the exported content of one account. Each section maps raw
// storage keys to raw stored values.
type Snapshot struct {
	Transactions map[string]string `json:"transactions"`
	Budgets      map[string]string `json:"budgets"`
	Incomes      map[string]string `json:"incomes"`
	Expenses     map[string]string `json:"expenses"`
	Categories   map[string]string `json:"categories"`
}

// NewSnapshot returns a snapshot with every section allocated.
func NewSnapshot() Snapshot {
	return Snapshot{
		Transactions: map[string]string{},
		Budgets:      map[string]string{},
		Incomes:      map[string]string{},
		Expenses:     map[string]string{},
		Categories:   map[string]string{},
	}
}

// FileName returns the backup file name for the given instant.
func FileName(at time.Time) string {
	return filePrefix + at.Format(stampFmt) + fileSuffix
}

// ValidName reports whether name is a bare backup file name as produced by
// FileName.
func ValidName(name string) bool {
	if name != filepath.Base(name) || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	_, err := time.Parse(stampFmt, stamp)
	return err == nil
}

// maxStampShift bounds how far Write moves the stamp past a taken name.
const maxStampShift = 60

// Write stores the snapshot in dir and returns the file path. An existing
// backup is never replaced: when the name for at is taken the stamp moves
// forward one second at a time.
func Write(dir string, snap Snapshot, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	for shift := 0; shift <= maxStampShift; shift++ {
		path := filepath.Join(dir, FileName(at.Add(time.Duration(shift)*time.Second)))
		err := os.Link(tmp.Name(), path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("write backup: %w", err)
		}
	}
	return "", fmt.Errorf("write backup: no free file name after %s", FileName(at))
}

// Read loads a snapshot. Missing sections come back empty, never nil.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read backup: %w", err)
	}
	snap := NewSnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode backup %s: %w", filepath.Base(path), err)
	}
	for _, section := range []*map[string]string{&snap.Transactions, &snap.Budgets, &snap.Incomes, &snap.Expenses, &snap.Categories} {
		if *section == nil {
			*section = map[string]string{}
		}
	}
	return snap, nil
}

// List returns the backup files in dir, newest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && ValidName(name) {
			names = append(names, name)
		}
	}
	// The timestamp layout sorts lexically in time order.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out, nil
}

// Latest returns the newest backup file in dir or ErrNoBackup.
func Latest(dir string) (string, error) {
	files, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoBackup
	}
	return files[0], nil
}
