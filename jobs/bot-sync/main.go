package main

import (
	"log/slog"
	"time"
)

func main() {
	slog.Info("Starting bot platform sync job")
	start := time.Now()

	if conf.PullDir != "" {
		if err := syncService.PullAllTables(conf.PullDir); err != nil {
			slog.Error("Error pulling bot platform tables", slog.String("error", err.Error()))
		}
	}

	if err := syncService.UpdateBotUsersFromVisits(); err != nil {
		slog.Error("Error adding new signups to the bot user table", slog.String("error", err.Error()))
		return
	}
	if err := syncService.CorrectChangedDates(); err != nil {
		slog.Error("Error correcting changed visit dates", slog.String("error", err.Error()))
		return
	}
	if err := syncService.UpdateTelegramIDs(); err != nil {
		slog.Error("Error updating Telegram IDs from the bot platform", slog.String("error", err.Error()))
	}

	changedIDs := pushAll()

	if len(changedIDs) > 0 {
		if err := syncService.TriggerRecalculation(changedIDs); err != nil {
			slog.Error("Error triggering bot platform recalculation", slog.String("error", err.Error()))
		}
	}

	slog.Info("Bot platform sync job completed",
		slog.Int("changedUsers", len(changedIDs)),
		slog.String("duration", time.Since(start).String()),
	)
}

// pushAll uploads new users, replaces rows whose visit dates changed, then
// uploads the replacements. Returns the affected user IDs.
func pushAll() []string {
	newIDs, err := syncService.PushNewUsers()
	if err != nil {
		slog.Error("Error pushing new users to the bot platform", slog.String("error", err.Error()))
		return nil
	}

	changedIDs, err := syncService.PushChangedRows()
	if err != nil {
		slog.Error("Error replacing changed rows on the bot platform", slog.String("error", err.Error()))
		return newIDs
	}
	if len(changedIDs) > 0 {
		// Removed rows are re-uploaded through the same new-user path.
		reuploaded, err := syncService.PushNewUsers()
		if err != nil {
			slog.Error("Error re-uploading replaced rows", slog.String("error", err.Error()))
		} else {
			changedIDs = append(changedIDs, reuploaded...)
		}
	}

	seen := map[string]bool{}
	var ids []string
	for _, id := range append(newIDs, changedIDs...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
