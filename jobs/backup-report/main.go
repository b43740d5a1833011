package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joannku/unity-scheduler/pkg/store"
)

func main() {
	slog.Info("Starting backup report job")
	start := time.Now()

	attachments, err := collectCSVs(conf.DataDir)
	if err != nil {
		slog.Error("Error collecting CSV files", slog.String("error", err.Error()))
		return
	}
	if len(attachments) < 1 {
		slog.Warn("No CSV files found, nothing to report", slog.String("dir", conf.DataDir))
		return
	}

	subject := fmt.Sprintf("UNITY data backup %s", time.Now().Format(store.DateLayout))
	body := fmt.Sprintf(
		"<p>Attached are copies of the %d UNITY record store files as of %s.</p>",
		len(attachments), time.Now().Format(store.TimestampLayout),
	)

	if err := smtpClients.SendMail(conf.Report.To, subject, body, attachments); err != nil {
		slog.Error("Error sending backup report", slog.String("error", err.Error()))
		return
	}

	slog.Info("Backup report job completed",
		slog.Int("files", len(attachments)),
		slog.String("duration", time.Since(start).String()),
	)
}

func collectCSVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
