package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/joannku/unity-scheduler/pkg/messaging/dispatch"
	"github.com/joannku/unity-scheduler/pkg/scheduling"
	"github.com/joannku/unity-scheduler/pkg/store"
)

func main() {
	slog.Info("Starting email scheduler job")
	start := time.Now()

	if err := backupService.ClearOldBackups(); err != nil {
		slog.Error("Error clearing old backups", slog.String("error", err.Error()))
	}
	if err := backupService.SnapshotCSVs(); err != nil {
		slog.Error("Error creating backups", slog.String("error", err.Error()))
	}

	if err := schedulerService.ReconcileChanges(); err != nil {
		slog.Error("Error reconciling external changes", slog.String("error", err.Error()))
		return
	}

	missing, err := schedulerService.MissingSchedules()
	if err != nil {
		slog.Error("Error looking up participants without schedules", slog.String("error", err.Error()))
		return
	}
	if len(missing) > 0 {
		slog.Info("Synthesizing schedules for new participants", slog.Int("count", len(missing)))
		if err := schedulerService.Synthesize(missing); err != nil {
			slog.Error("Error synthesizing schedules", slog.String("error", err.Error()))
			return
		}
	}

	due, err := schedulerService.DueToday()
	if err != nil {
		slog.Error("Error selecting due schedule entries", slog.String("error", err.Error()))
		return
	}
	dispatchSet, err := schedulerService.BuildDispatchSet(due)
	if err != nil {
		slog.Error("Error building dispatch set", slog.String("error", err.Error()))
		return
	}

	sent, failed, receipts := sendAll(dispatchSet)
	if len(receipts) > 0 {
		if err := storeService.AppendReceipts(receipts); err != nil {
			slog.Error("Error appending receipts to the email log", slog.String("error", err.Error()))
			return
		}
	}

	if conf.Report.Enabled {
		sendRunReport(sent, failed, time.Since(start))
	}

	slog.Info("Email scheduler job completed",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.String("duration", time.Since(start).String()),
	)
}

// sendAll dispatches every record in the set in a stable order and collects
// one receipt per attempt. A schedule integrity failure aborts the process,
// since it means the email log and the email schedule disagree.
func sendAll(dispatchSet scheduling.DispatchSet) (sent int, failed int, receipts []store.Receipt) {
	pids := make([]string, 0, len(dispatchSet))
	for pid := range dispatchSet {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	for _, pid := range pids {
		codes := make([]string, 0, len(dispatchSet[pid]))
		for code := range dispatchSet[pid] {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			receipt, err := dispatcher.Send(dispatchSet[pid][code])
			if err != nil {
				var noMatch *dispatch.NoMatchingScheduleError
				if errors.As(err, &noMatch) {
					slog.Error("Email schedule integrity check failed, aborting run", slog.String("error", err.Error()))
					panic(err)
				}
				slog.Error("Error dispatching email",
					slog.String("participantID", pid),
					slog.String("emailCode", code),
					slog.String("error", err.Error()),
				)
				continue
			}
			receipts = append(receipts, receipt)
			if receipt.Status {
				sent++
			} else {
				failed++
			}
		}
	}
	return sent, failed, receipts
}

func sendRunReport(sent int, failed int, duration time.Duration) {
	subject := fmt.Sprintf("UNITY scheduler run report %s", time.Now().Format(store.DateLayout))
	body := fmt.Sprintf(
		"<p>The UNITY email scheduler has finished its run.</p><ul><li>Emails sent: %d</li><li>Sends failed: %d</li><li>Duration: %s</li></ul>",
		sent, failed, duration.String(),
	)

	var attachments []string
	if conf.Logging.LogToFile {
		attachments = append(attachments, conf.Logging.Filename)
	}
	if err := smtpClients.SendMail(conf.Report.To, subject, body, attachments); err != nil {
		slog.Error("Error sending run report", slog.String("error", err.Error()))
	}
}
