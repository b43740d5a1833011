package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func testParticipantHeader() []string {
	header := []string{"ParticipantID", "Active", "Arm", "FirstName", "LastName", "Email"}
	for i := 1; i <= VisitSlots; i++ {
		header = append(header, fmt.Sprintf("V%d_Date", i), fmt.Sprintf("V%d_Time", i))
	}
	return header
}

func testParticipantRow(pid string, active string, arm string, visits ...string) []string {
	row := []string{pid, active, arm, "Ada", "Lovelace", pid + "@example.com"}
	for i := 0; i < VisitSlots; i++ {
		date, clock := "", ""
		if 2*i < len(visits) {
			date = visits[2*i]
		}
		if 2*i+1 < len(visits) {
			clock = visits[2*i+1]
		}
		row = append(row, date, clock)
	}
	return row
}

func newTestStore(t *testing.T) *StoreService {
	t.Helper()
	dir := t.TempDir()
	paths := Paths{
		VisitScheduleLocal:   filepath.Join(dir, "unity_visitschedule.csv"),
		VisitScheduleEdited:  filepath.Join(dir, "unity_visitschedule_edited.csv"),
		EmailScheduleLocal:   filepath.Join(dir, "unity_emailschedule.csv"),
		EmailTemplatesLocal:  filepath.Join(dir, "unity_emailtemplates.csv"),
		EmailTemplatesEdited: filepath.Join(dir, "unity_emailtemplates_edited.csv"),
		EmailLogLocal:        filepath.Join(dir, "unity_emaillog.csv"),
		AttachmentsDir:       dir,
	}
	s := NewStoreService(paths)

	mustWrite(t, paths.VisitScheduleLocal, testParticipantHeader(), nil)
	mustWrite(t, paths.VisitScheduleEdited, testParticipantHeader(), nil)
	mustWrite(t, paths.EmailScheduleLocal, []string{"ParticipantID", "EmailCode", "ScheduledDate", "UpdatedAt"}, nil)
	mustWrite(t, paths.EmailTemplatesLocal, templateHeader, nil)
	mustWrite(t, paths.EmailTemplatesEdited, templateHeader, nil)
	mustWrite(t, paths.EmailLogLocal, []string{"ParticipantID", "EmailCode", "ScheduledFor", "SentAt", "Status"}, nil)
	return s
}

func mustWrite(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	if err := WriteTable(path, header, rows); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}

func TestLoadParticipants(t *testing.T) {
	s := newTestStore(t)

	t.Run("parses visit columns and active flag", func(t *testing.T) {
		mustWrite(t, s.paths.VisitScheduleLocal, testParticipantHeader(), [][]string{
			testParticipantRow("P001", "True", "Healthy Arm", "2026-09-01", "10:00", "2026-09-15", "14:30"),
			testParticipantRow("P002", "False", "Alcohol Arm"),
		})

		table, err := s.LoadParticipants()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(table.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(table.Rows))
		}

		p, found := table.Find("P001")
		if !found {
			t.Fatal("P001 not found")
		}
		if !p.Active {
			t.Error("P001 should be active")
		}
		if p.VisitDates[1] != "2026-09-15" || p.VisitTimes[1] != "14:30" {
			t.Errorf("unexpected visit 2: %s %s", p.VisitDates[1], p.VisitTimes[1])
		}

		p, _ = table.Find("P002")
		if p.Active {
			t.Error("P002 should be inactive")
		}
	})

	t.Run("keeps unknown columns", func(t *testing.T) {
		header := append(testParticipantHeader(), "Gender")
		row := append(testParticipantRow("P003", "True", "Healthy Arm"), "F")
		mustWrite(t, s.paths.VisitScheduleLocal, header, [][]string{row})

		table, err := s.LoadParticipants()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p, _ := table.Find("P003")
		if p.Extra["Gender"] != "F" {
			t.Errorf("unexpected extra columns: %v", p.Extra)
		}

		rec := table.Record(p)
		if rec[len(rec)-1] != "F" {
			t.Errorf("extra column lost on write: %v", rec)
		}
	})

	t.Run("missing column is a data load error", func(t *testing.T) {
		mustWrite(t, s.paths.VisitScheduleLocal, []string{"ParticipantID", "Active"}, nil)

		_, err := s.LoadParticipants()
		var loadErr *DataLoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected DataLoadError, got %v", err)
		}
	})

	t.Run("missing file is a data load error", func(t *testing.T) {
		s.paths.VisitScheduleLocal = filepath.Join(t.TempDir(), "absent.csv")

		_, err := s.LoadParticipants()
		var loadErr *DataLoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected DataLoadError, got %v", err)
		}
	})
}

func TestEditedParticipants(t *testing.T) {
	s := newTestStore(t)

	p := parseParticipant(testParticipantHeader(), testParticipantRow("P010", "True", "Healthy Arm", "2026-09-01", "10:00"))

	if err := s.AppendEditedParticipant(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("duplicate registration rejected", func(t *testing.T) {
		if err := s.AppendEditedParticipant(p); err == nil {
			t.Error("expected error for duplicate participant")
		}
	})

	t.Run("update replaces the row", func(t *testing.T) {
		p.Email = "new@example.com"
		if err := s.UpdateEditedParticipant(p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		table, err := s.LoadEditedParticipants()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := table.Find("P010")
		if got.Email != "new@example.com" {
			t.Errorf("update not persisted, got %s", got.Email)
		}
	})

	t.Run("update of unknown participant fails", func(t *testing.T) {
		unknown := p
		unknown.ParticipantID = "P999"
		if err := s.UpdateEditedParticipant(unknown); err == nil {
			t.Error("expected error for unknown participant")
		}
	})
}

func TestLoadTemplates(t *testing.T) {
	s := newTestStore(t)

	t.Run("parses attachments and calendar flag", func(t *testing.T) {
		mustWrite(t, s.paths.EmailTemplatesLocal, templateHeader, [][]string{
			{"WELCOME", "Welcome!", "Hi {FirstName}", "0", "Signup", "None", "0"},
			{"REMIND-V2", "Reminder", "See you", "-3", "V2", "map.pdf, info.pdf", "1"},
		})

		catalog, err := s.LoadTemplates()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		welcome := catalog["WELCOME"]
		if welcome.Attachments != nil || welcome.CalendarEvent {
			t.Errorf("unexpected WELCOME template: %+v", welcome)
		}
		remind := catalog["REMIND-V2"]
		if len(remind.Attachments) != 2 || remind.Attachments[0] != "map.pdf" {
			t.Errorf("unexpected attachments: %v", remind.Attachments)
		}
		if remind.Offset != -3 || !remind.CalendarEvent {
			t.Errorf("unexpected REMIND-V2 template: %+v", remind)
		}
	})

	t.Run("invalid offset is a data load error", func(t *testing.T) {
		mustWrite(t, s.paths.EmailTemplatesLocal, templateHeader, [][]string{
			{"BROKEN", "x", "y", "three", "V1", "", "0"},
		})

		_, err := s.LoadTemplates()
		var loadErr *DataLoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("expected DataLoadError, got %v", err)
		}
	})

	t.Run("edited catalog round trip", func(t *testing.T) {
		in := []EmailTemplate{
			{EmailCode: "CALL-1", Subject: "Call", EmailBody: "soon", Offset: 2, VisitNumber: "V4", Attachments: []string{"a.pdf"}, CalendarEvent: true},
		}
		if err := s.SaveEditedTemplates(in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		catalog, err := s.LoadEditedTemplates()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := catalog["CALL-1"]
		if got.Offset != 2 || !got.CalendarEvent || len(got.Attachments) != 1 {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})
}

func TestReceiptLogBlocks(t *testing.T) {
	log := ReceiptLog{Receipts: []Receipt{
		{ParticipantID: "P001", EmailCode: "WELCOME", Status: true},
		{ParticipantID: "P001", EmailCode: "REMIND-V2", Status: false},
	}}

	t.Run("successful send always blocks", func(t *testing.T) {
		if !log.Blocks("P001", "WELCOME", false) || !log.Blocks("P001", "WELCOME", true) {
			t.Error("successful receipt must block under both policies")
		}
	})

	t.Run("failed send blocks unless retries are enabled", func(t *testing.T) {
		if !log.Blocks("P001", "REMIND-V2", false) {
			t.Error("failed receipt must block without retries")
		}
		if log.Blocks("P001", "REMIND-V2", true) {
			t.Error("failed receipt must not block with retries")
		}
	})

	t.Run("no receipt never blocks", func(t *testing.T) {
		if log.Blocks("P002", "WELCOME", false) {
			t.Error("unknown participant must not be blocked")
		}
	})
}

func TestAppendReceipts(t *testing.T) {
	s := newTestStore(t)

	first := []Receipt{{ParticipantID: "P001", EmailCode: "WELCOME", ScheduledFor: "2026-08-29", SentAt: "2026-08-29 09:00:00", Status: true}}
	if err := s.AppendReceipts(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := []Receipt{{ParticipantID: "P002", EmailCode: "WELCOME", ScheduledFor: "2026-08-29", SentAt: "2026-08-29 09:01:00", Status: false}}
	if err := s.AppendReceipts(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log, err := s.LoadReceipts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log.Receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(log.Receipts))
	}
	if log.Receipts[0].Status != true || log.Receipts[1].Status != false {
		t.Errorf("status flags not preserved: %+v", log.Receipts)
	}

	// A repeated send of the same email stays two log rows.
	if err := s.AppendReceipts(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log, err = s.LoadReceipts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log.Receipts) != 3 {
		t.Fatalf("duplicate receipt was merged: expected 3 rows, got %d", len(log.Receipts))
	}
	if log.Receipts[2].ParticipantID != "P001" || log.Receipts[2].EmailCode != "WELCOME" {
		t.Errorf("duplicate receipt row altered: %+v", log.Receipts[2])
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := []ScheduleEntry{
		{ParticipantID: "P001", EmailCode: "WELCOME", ScheduledDate: "2026-08-29", UpdatedAt: "2026-08-29 08:00:00"},
		{ParticipantID: "P001", EmailCode: "REMIND-V2", ScheduledDate: "2026-09-12", UpdatedAt: "2026-08-29 08:00:00"},
	}
	if err := s.SaveSchedule(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.LoadSchedule()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[1].ScheduledDate != "2026-09-12" {
		t.Errorf("schedule round trip mismatch: %+v", out)
	}
}

func TestVisitIndex(t *testing.T) {
	if i, err := VisitIndex("V1"); err != nil || i != 0 {
		t.Errorf("V1: got %d, %v", i, err)
	}
	if i, err := VisitIndex("V7"); err != nil || i != 6 {
		t.Errorf("V7: got %d, %v", i, err)
	}
	for _, ref := range []string{"V0", "V8", "Signup", "X2", ""} {
		if _, err := VisitIndex(ref); err == nil {
			t.Errorf("expected error for %q", ref)
		}
	}
}

func TestArmSuffix(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"REMIND-AA", "AA"},
		{"REMIND-HA", "HA"},
		{"WELCOME", ""},
		{"FOLLOW-UP-HA", "HA"},
	}
	for _, c := range cases {
		got := EmailTemplate{EmailCode: c.code}.ArmSuffix()
		if got != c.want {
			t.Errorf("%s: expected %q, got %q", c.code, c.want, got)
		}
	}
}
