package store

var scheduleHeader = []string{"ParticipantID", "EmailCode", "ScheduledDate", "UpdatedAt"}

// LoadSchedule reads the email schedule table.
func (s *StoreService) LoadSchedule() ([]ScheduleEntry, error) {
	header, rows, err := ReadTable(s.paths.EmailScheduleLocal)
	if err != nil {
		return nil, &DataLoadError{Table: s.paths.EmailScheduleLocal, Err: err}
	}
	idx, err := requireColumns(header, scheduleHeader...)
	if err != nil {
		return nil, &DataLoadError{Table: s.paths.EmailScheduleLocal, Err: err}
	}

	entries := make([]ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ScheduleEntry{
			ParticipantID: row[idx["ParticipantID"]],
			EmailCode:     row[idx["EmailCode"]],
			ScheduledDate: row[idx["ScheduledDate"]],
			UpdatedAt:     row[idx["UpdatedAt"]],
		})
	}
	return entries, nil
}

// SaveSchedule flushes the email schedule table.
func (s *StoreService) SaveSchedule(entries []ScheduleEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ParticipantID,
			entry.EmailCode,
			entry.ScheduledDate,
			entry.UpdatedAt,
		})
	}
	return WriteTable(s.paths.EmailScheduleLocal, scheduleHeader, rows)
}
