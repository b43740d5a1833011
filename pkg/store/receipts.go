package store

var receiptHeader = []string{"ParticipantID", "EmailCode", "ScheduledFor", "SentAt", "Status"}

// LoadReceipts reads the email log.
func (s *StoreService) LoadReceipts() (ReceiptLog, error) {
	header, rows, err := ReadTable(s.paths.EmailLogLocal)
	if err != nil {
		return ReceiptLog{}, &DataLoadError{Table: s.paths.EmailLogLocal, Err: err}
	}
	idx, err := requireColumns(header, receiptHeader...)
	if err != nil {
		return ReceiptLog{}, &DataLoadError{Table: s.paths.EmailLogLocal, Err: err}
	}

	log := ReceiptLog{}
	for _, row := range rows {
		log.Receipts = append(log.Receipts, Receipt{
			ParticipantID: row[idx["ParticipantID"]],
			EmailCode:     row[idx["EmailCode"]],
			ScheduledFor:  row[idx["ScheduledFor"]],
			SentAt:        row[idx["SentAt"]],
			Status:        row[idx["Status"]] == "True" || row[idx["Status"]] == "true",
		})
	}
	return log, nil
}

// AppendReceipts appends dispatch receipts to the email log and flushes it.
// The log is append-only and is never deduplicated; a duplicate
// (participant, code) row would indicate a synthesis bug upstream.
func (s *StoreService) AppendReceipts(receipts []Receipt) error {
	log, err := s.LoadReceipts()
	if err != nil {
		return err
	}
	log.Receipts = append(log.Receipts, receipts...)

	rows := make([][]string, 0, len(log.Receipts))
	for _, r := range log.Receipts {
		status := "False"
		if r.Status {
			status = "True"
		}
		rows = append(rows, []string{
			r.ParticipantID,
			r.EmailCode,
			r.ScheduledFor,
			r.SentAt,
			status,
		})
	}
	return WriteTable(s.paths.EmailLogLocal, receiptHeader, rows)
}
