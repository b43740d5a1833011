// Package backup snapshots the record store's CSV files and ages out old
// snapshots.
package backup

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const snapshotStampLayout = "20060102_150405"

var snapshotNameRe = regexp.MustCompile(`(\d{8})_(\d{6})\.csv$`)

type Service struct {
	// LocalDir holds the authoritative CSV files.
	LocalDir string
	// BackupDir receives one subfolder per CSV file.
	BackupDir string
	// RetentionDays ages out snapshots older than this; 0 removes all.
	RetentionDays int

	now func() time.Time
}

func NewService(localDir string, backupDir string, retentionDays int) *Service {
	return &Service{
		LocalDir:      localDir,
		BackupDir:     backupDir,
		RetentionDays: retentionDays,
		now:           time.Now,
	}
}

// SnapshotCSVs copies every CSV in the local dir into its backup subfolder
// under a timestamped name. Files identical to their most recent snapshot
// are skipped. I/O problems are logged per file; the run continues.
func (s *Service) SnapshotCSVs() error {
	entries, err := os.ReadDir(s.LocalDir)
	if err != nil {
		return err
	}
	stamp := s.now().Format(snapshotStampLayout)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".csv")
		subfolder := filepath.Join(s.BackupDir, name)
		if err := os.MkdirAll(subfolder, 0755); err != nil {
			slog.Error("Cannot create backup subfolder", slog.String("folder", subfolder), slog.String("error", err.Error()))
			continue
		}

		source := filepath.Join(s.LocalDir, entry.Name())
		unchanged, err := s.matchesLatestSnapshot(source, subfolder)
		if err != nil {
			slog.Error("Cannot compare with latest snapshot", slog.String("file", entry.Name()), slog.String("error", err.Error()))
			continue
		}
		if unchanged {
			slog.Debug("No changes detected, skipping backup", slog.String("file", entry.Name()))
			continue
		}

		target := filepath.Join(subfolder, fmt.Sprintf("%s_%s.csv", name, stamp))
		if err := copySnapshot(source, target); err != nil {
			slog.Error("Cannot back up file", slog.String("file", entry.Name()), slog.String("error", err.Error()))
			continue
		}
		slog.Info("Backed up file", slog.String("file", entry.Name()))
	}
	return nil
}

// matchesLatestSnapshot compares the file byte for byte with the newest
// snapshot in the subfolder, if any.
func (s *Service) matchesLatestSnapshot(source string, subfolder string) (bool, error) {
	entries, err := os.ReadDir(subfolder)
	if err != nil {
		return false, err
	}
	snapshots := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".csv") {
			snapshots = append(snapshots, entry.Name())
		}
	}
	if len(snapshots) == 0 {
		return false, nil
	}
	sort.Strings(snapshots)
	latest := filepath.Join(subfolder, snapshots[len(snapshots)-1])

	sourceContent, err := os.ReadFile(source)
	if err != nil {
		return false, err
	}
	latestContent, err := os.ReadFile(latest)
	if err != nil {
		return false, err
	}
	return bytes.Equal(sourceContent, latestContent), nil
}

// ClearOldBackups removes snapshots older than the retention limit.
func (s *Service) ClearOldBackups() error {
	cutoff := s.now().AddDate(0, 0, -s.RetentionDays)
	return filepath.WalkDir(s.BackupDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			slog.Error("Cannot scan backup folder", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		match := snapshotNameRe.FindStringSubmatch(d.Name())
		if match == nil {
			return nil
		}
		fileTime, err := time.Parse(snapshotStampLayout, match[1]+"_"+match[2])
		if err != nil {
			return nil
		}
		if s.RetentionDays == 0 || fileTime.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				slog.Error("Unable to remove old backup", slog.String("path", path), slog.String("error", err.Error()))
			} else {
				slog.Info("Removed old backup", slog.String("path", path))
			}
		}
		return nil
	})
}

func copySnapshot(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
