package store

import (
	"fmt"
	"strings"
)

// ParticipantTable is the fully loaded visit schedule table. The header is
// kept so rows can be written back with the registration columns intact.
type ParticipantTable struct {
	Header []string
	Rows   []Participant
}

func (t *ParticipantTable) Find(pid string) (Participant, bool) {
	for _, p := range t.Rows {
		if p.ParticipantID == pid {
			return p, true
		}
	}
	return Participant{}, false
}

func (t *ParticipantTable) ParticipantIDs() []string {
	ids := make([]string, 0, len(t.Rows))
	for _, p := range t.Rows {
		ids = append(ids, p.ParticipantID)
	}
	return ids
}

func requiredParticipantColumns() []string {
	cols := []string{"ParticipantID", "Active", "Arm", "FirstName", "LastName", "Email"}
	for i := 1; i <= VisitSlots; i++ {
		cols = append(cols, fmt.Sprintf("V%d_Date", i), fmt.Sprintf("V%d_Time", i))
	}
	return cols
}

// visitColumn splits column names like "V3_Date" into slot index and kind.
func visitColumn(col string) (slot int, isDate bool, ok bool) {
	parts := strings.SplitN(col, "_", 2)
	if len(parts) != 2 {
		return 0, false, false
	}
	i, err := VisitIndex(parts[0])
	if err != nil {
		return 0, false, false
	}
	switch parts[1] {
	case "Date":
		return i, true, true
	case "Time":
		return i, false, true
	}
	return 0, false, false
}

func parseParticipant(header []string, row []string) Participant {
	p := Participant{Extra: map[string]string{}}
	for i, col := range header {
		if i >= len(row) {
			break
		}
		value := row[i]
		switch col {
		case "ParticipantID":
			p.ParticipantID = value
		case "Active":
			p.Active = value == "True" || value == "true"
		case "Arm":
			p.Arm = value
		case "FirstName":
			p.FirstName = value
		case "LastName":
			p.LastName = value
		case "Email":
			p.Email = value
		default:
			if slot, isDate, ok := visitColumn(col); ok {
				if isDate {
					p.VisitDates[slot] = value
				} else {
					p.VisitTimes[slot] = value
				}
			} else {
				p.Extra[col] = value
			}
		}
	}
	return p
}

// Record assembles a participant row in the table's column order.
func (t *ParticipantTable) Record(p Participant) []string {
	row := make([]string, len(t.Header))
	for i, col := range t.Header {
		switch col {
		case "ParticipantID":
			row[i] = p.ParticipantID
		case "Active":
			if p.Active {
				row[i] = "True"
			} else {
				row[i] = "False"
			}
		case "Arm":
			row[i] = p.Arm
		case "FirstName":
			row[i] = p.FirstName
		case "LastName":
			row[i] = p.LastName
		case "Email":
			row[i] = p.Email
		default:
			if slot, isDate, ok := visitColumn(col); ok {
				if isDate {
					row[i] = p.VisitDates[slot]
				} else {
					row[i] = p.VisitTimes[slot]
				}
			} else {
				row[i] = p.Extra[col]
			}
		}
	}
	return row
}

func loadParticipantTable(path string) (*ParticipantTable, error) {
	header, rows, err := ReadTable(path)
	if err != nil {
		return nil, &DataLoadError{Table: path, Err: err}
	}
	if _, err := requireColumns(header, requiredParticipantColumns()...); err != nil {
		return nil, &DataLoadError{Table: path, Err: err}
	}

	table := &ParticipantTable{Header: header}
	for _, row := range rows {
		table.Rows = append(table.Rows, parseParticipant(header, row))
	}
	return table, nil
}

// LoadParticipants reads the authoritative visit schedule.
func (s *StoreService) LoadParticipants() (*ParticipantTable, error) {
	return loadParticipantTable(s.paths.VisitScheduleLocal)
}

// LoadEditedParticipants reads the externally edited visit schedule copy.
func (s *StoreService) LoadEditedParticipants() (*ParticipantTable, error) {
	return loadParticipantTable(s.paths.VisitScheduleEdited)
}

// AppendEditedParticipant adds a newly registered participant to the edited
// visit schedule copy; the reconciler folds it into the authoritative table
// on the next run.
func (s *StoreService) AppendEditedParticipant(p Participant) error {
	table, err := s.LoadEditedParticipants()
	if err != nil {
		return err
	}
	if _, exists := table.Find(p.ParticipantID); exists {
		return fmt.Errorf("participant '%s' already registered", p.ParticipantID)
	}
	table.Rows = append(table.Rows, p)
	return s.saveParticipantTable(s.paths.VisitScheduleEdited, table)
}

// UpdateEditedParticipant replaces the row of an existing participant in the
// edited visit schedule copy.
func (s *StoreService) UpdateEditedParticipant(p Participant) error {
	table, err := s.LoadEditedParticipants()
	if err != nil {
		return err
	}
	for i, row := range table.Rows {
		if row.ParticipantID == p.ParticipantID {
			table.Rows[i] = p
			return s.saveParticipantTable(s.paths.VisitScheduleEdited, table)
		}
	}
	return fmt.Errorf("participant '%s' not found", p.ParticipantID)
}

func (s *StoreService) saveParticipantTable(path string, table *ParticipantTable) error {
	rows := make([][]string, 0, len(table.Rows))
	for _, p := range table.Rows {
		rows = append(rows, table.Record(p))
	}
	return WriteTable(path, table.Header, rows)
}
