package botsync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joannku/unity-scheduler/pkg/store"
)

const (
	visitScheduleTable = "unity_visitschedule"
	userTable          = "unity_usertable"
)

var botUserHeader = []string{"UserID", "V1", "V2", "V3", "TelegramID"}

// BotUser is one row of the local bot-users table: the subset of the visit
// schedule the chatbot platform needs.
type BotUser struct {
	UserID     string
	V1         string
	V2         string
	V3         string
	TelegramID string
}

// SyncService keeps the local bot-users table and the chatbot platform's
// visit schedule table in step with the record store.
type SyncService struct {
	client       *Client
	store        *store.StoreService
	botUsersPath string
}

func NewSyncService(client *Client, s *store.StoreService, botUsersPath string) *SyncService {
	return &SyncService{
		client:       client,
		store:        s,
		botUsersPath: botUsersPath,
	}
}

func (s *SyncService) loadBotUsers() ([]BotUser, error) {
	header, rows, err := store.ReadTable(s.botUsersPath)
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, col := range header {
		idx[col] = i
	}
	for _, col := range botUserHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("bot users table missing column '%s'", col)
		}
	}

	users := make([]BotUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, BotUser{
			UserID:     row[idx["UserID"]],
			V1:         row[idx["V1"]],
			V2:         row[idx["V2"]],
			V3:         row[idx["V3"]],
			TelegramID: row[idx["TelegramID"]],
		})
	}
	return users, nil
}

func (s *SyncService) saveBotUsers(users []BotUser) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.UserID, u.V1, u.V2, u.V3, u.TelegramID})
	}
	return store.WriteTable(s.botUsersPath, botUserHeader, rows)
}

// UpdateBotUsersFromVisits adds participants from the visit schedule that
// are missing from the local bot-users table.
func (s *SyncService) UpdateBotUsersFromVisits() error {
	participants, err := s.store.LoadParticipants()
	if err != nil {
		return err
	}
	users, err := s.loadBotUsers()
	if err != nil {
		return err
	}

	known := map[string]bool{}
	for _, u := range users {
		known[u.UserID] = true
	}

	added := 0
	for _, p := range participants.Rows {
		if known[p.ParticipantID] {
			continue
		}
		users = append(users, BotUser{
			UserID:     p.ParticipantID,
			V1:         p.VisitDates[0],
			V2:         p.VisitDates[1],
			V3:         p.VisitDates[2],
			TelegramID: "0",
		})
		added++
	}
	if added == 0 {
		slog.Info("No new signups to add to bot users table")
		return nil
	}
	slog.Info("Added new signups to bot users table", slog.Int("count", added))
	return s.saveBotUsers(users)
}

// CorrectChangedDates overwrites V1..V3 in the bot-users table with the
// current visit schedule dates where they diverged.
func (s *SyncService) CorrectChangedDates() error {
	participants, err := s.store.LoadParticipants()
	if err != nil {
		return err
	}
	users, err := s.loadBotUsers()
	if err != nil {
		return err
	}

	changed := false
	for i, u := range users {
		p, found := participants.Find(u.UserID)
		if !found {
			slog.Warn("Bot user missing from visit schedule", slog.String("userID", u.UserID))
			continue
		}
		dates := [3]*string{&users[i].V1, &users[i].V2, &users[i].V3}
		for v := 0; v < 3; v++ {
			if *dates[v] != p.VisitDates[v] {
				slog.Info("Correcting changed visit date",
					slog.String("userID", u.UserID),
					slog.String("visit", fmt.Sprintf("V%d", v+1)))
				*dates[v] = p.VisitDates[v]
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return s.saveBotUsers(users)
}

// UpdateTelegramIDs pulls the platform's user table and copies changed
// Telegram IDs into the local bot-users table.
func (s *SyncService) UpdateTelegramIDs() error {
	remote, err := s.client.FetchTable(userTable)
	if err != nil {
		return err
	}
	remoteIDs := map[string]string{}
	for _, row := range remote {
		pid := fmt.Sprint(row["ParticipantID"])
		remoteIDs[pid] = fmt.Sprint(row["TelegramID"])
	}

	users, err := s.loadBotUsers()
	if err != nil {
		return err
	}

	changed := false
	for i, u := range users {
		telegramID, ok := remoteIDs[u.UserID]
		if !ok || telegramID == u.TelegramID {
			continue
		}
		slog.Info("Telegram ID changed",
			slog.String("userID", u.UserID),
			slog.String("from", u.TelegramID),
			slog.String("to", telegramID))
		users[i].TelegramID = telegramID
		changed = true
	}
	if !changed {
		return nil
	}
	return s.saveBotUsers(users)
}

// PushNewUsers uploads bot users missing from the platform's visit schedule
// table and returns their IDs.
func (s *SyncService) PushNewUsers() ([]string, error) {
	remote, err := s.client.FetchTable(visitScheduleTable)
	if err != nil {
		return nil, err
	}
	remoteIDs := map[string]bool{}
	for _, row := range remote {
		remoteIDs[fmt.Sprint(row["UserID"])] = true
	}

	users, err := s.loadBotUsers()
	if err != nil {
		return nil, err
	}

	records := []map[string]string{}
	ids := []string{}
	for _, u := range users {
		if remoteIDs[u.UserID] {
			continue
		}
		records = append(records, map[string]string{
			"UserID":     u.UserID,
			"V1":         u.V1,
			"V2":         u.V2,
			"V3":         u.V3,
			"TelegramID": u.TelegramID,
		})
		ids = append(ids, u.UserID)
	}
	if len(records) == 0 {
		slog.Info("No new records to upload")
		return nil, nil
	}
	slog.Info("Uploading new bot users", slog.Int("count", len(records)))
	if err := s.client.UploadRows(visitScheduleTable, records); err != nil {
		return nil, err
	}
	return ids, nil
}

// PushChangedRows removes remote visit schedule rows whose V1..V3 dates no
// longer match the local bot-users table, so they can be re-uploaded, and
// returns the affected user IDs.
func (s *SyncService) PushChangedRows() ([]string, error) {
	remote, err := s.client.FetchTable(visitScheduleTable)
	if err != nil {
		return nil, err
	}
	remoteRows := map[string]map[string]interface{}{}
	for _, row := range remote {
		remoteRows[fmt.Sprint(row["UserID"])] = row
	}

	users, err := s.loadBotUsers()
	if err != nil {
		return nil, err
	}

	changed := []string{}
	for _, u := range users {
		row, found := remoteRows[u.UserID]
		if !found {
			continue
		}
		local := [3]string{u.V1, u.V2, u.V3}
		for v := 0; v < 3; v++ {
			if fmt.Sprint(row[fmt.Sprintf("V%d", v+1)]) != local[v] {
				changed = append(changed, u.UserID)
				break
			}
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}

	slog.Info("Removing changed remote rows", slog.Int("count", len(changed)))
	for _, userID := range changed {
		if err := s.client.RemoveRow(visitScheduleTable, userID); err != nil {
			slog.Error("Cannot remove remote row", slog.String("userID", userID), slog.String("error", err.Error()))
		}
	}
	return changed, nil
}

// TriggerRecalculation forwards to the client for the visit schedule table.
func (s *SyncService) TriggerRecalculation(userIDs []string) error {
	if len(userIDs) == 0 {
		slog.Info("No users to recalculate days for")
		return nil
	}
	return s.client.TriggerRecalculation(visitScheduleTable, userIDs)
}

// PullAllTables saves every configured platform table as a CSV into dir and
// records the pull time in an info file.
func (s *SyncService) PullAllTables(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, table := range s.client.tables {
		rows, err := s.client.FetchTable(table)
		if err != nil {
			slog.Error("Cannot fetch remote table", slog.String("table", table), slog.String("error", err.Error()))
			continue
		}
		if len(rows) == 0 {
			continue
		}
		if err := writeRowsAsCSV(filepath.Join(dir, table+".csv"), rows); err != nil {
			slog.Error("Cannot write table CSV", slog.String("table", table), slog.String("error", err.Error()))
		}
	}

	info := fmt.Sprintf("Data pulled from chatbot platform on %s.\n", time.Now().Format(store.TimestampLayout))
	return os.WriteFile(filepath.Join(dir, "info.txt"), []byte(info), 0644)
}

func writeRowsAsCSV(path string, rows []map[string]interface{}) error {
	columns := map[string]bool{}
	for _, row := range rows {
		for col := range row {
			columns[col] = true
		}
	}
	header := make([]string, 0, len(columns))
	for col := range columns {
		header = append(header, col)
	}
	sort.Strings(header)

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			if value, ok := row[col]; ok && value != nil {
				record[i] = fmt.Sprint(value)
			}
		}
		records = append(records, record)
	}
	return store.WriteTable(path, header, records)
}
