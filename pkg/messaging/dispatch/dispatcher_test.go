package dispatch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joannku/unity-scheduler/pkg/scheduling"
	"github.com/joannku/unity-scheduler/pkg/store"
)

type sentMail struct {
	to          []string
	subject     string
	body        string
	attachments []string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendMail(to []string, subject string, body string, attachments []string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body, attachments: attachments})
	return f.err
}

func newTestDispatcher(t *testing.T, sender MailSender, entries []store.ScheduleEntry) (*Dispatcher, store.Paths) {
	t.Helper()
	dir := t.TempDir()
	paths := store.Paths{
		EmailScheduleLocal: filepath.Join(dir, "unity_emailschedule.csv"),
		AttachmentsDir:     dir,
	}
	s := store.NewStoreService(paths)
	if err := s.SaveSchedule(entries); err != nil {
		t.Fatalf("writing schedule fixture: %v", err)
	}
	return NewDispatcher(s, sender, "Imaging Centre", 0), paths
}

func testRecord() scheduling.DispatchRecord {
	rec := scheduling.DispatchRecord{
		Entry: store.ScheduleEntry{ParticipantID: "P001", EmailCode: "REMIND-V2", ScheduledDate: "2026-09-12"},
		Participant: store.Participant{
			ParticipantID: "P001",
			FirstName:     "Ada",
			Email:         "ada@example.com",
		},
		Template: store.EmailTemplate{
			EmailCode:   "REMIND-V2",
			Subject:     "Visit on {V2_Date}",
			EmailBody:   "Dear {FirstName}, see you at {V2_Time}.",
			VisitNumber: "V2",
		},
	}
	rec.Participant.VisitDates[1] = "2026-09-15"
	rec.Participant.VisitTimes[1] = "14:00"
	return rec
}

func TestSend(t *testing.T) {
	rec := testRecord()

	t.Run("renders and sends", func(t *testing.T) {
		sender := &fakeSender{}
		d, _ := newTestDispatcher(t, sender, []store.ScheduleEntry{rec.Entry})

		receipt, err := d.Send(rec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sender.sent) != 1 {
			t.Fatalf("expected 1 sent mail, got %d", len(sender.sent))
		}
		mail := sender.sent[0]
		if mail.to[0] != "ada@example.com" {
			t.Errorf("unexpected recipient: %v", mail.to)
		}
		if mail.subject != "Visit on 2026-09-15" {
			t.Errorf("subject not rendered: %q", mail.subject)
		}
		if mail.body != "Dear Ada, see you at 14:00." {
			t.Errorf("body not rendered: %q", mail.body)
		}
		if !receipt.Status {
			t.Error("successful send must yield an ok receipt")
		}
		if receipt.ScheduledFor != "2026-09-12" {
			t.Errorf("receipt must carry the scheduled date, got %s", receipt.ScheduledFor)
		}
	})

	t.Run("transport failure yields failed receipt", func(t *testing.T) {
		sender := &fakeSender{err: fmt.Errorf("connection refused")}
		d, _ := newTestDispatcher(t, sender, []store.ScheduleEntry{rec.Entry})

		receipt, err := d.Send(rec)
		if err != nil {
			t.Fatalf("transport failure must not be an error, got %v", err)
		}
		if receipt.Status {
			t.Error("failed send must yield a failed receipt")
		}
	})

	t.Run("missing schedule entry fails the integrity check", func(t *testing.T) {
		sender := &fakeSender{}
		d, _ := newTestDispatcher(t, sender, nil)

		_, err := d.Send(rec)
		var noMatch *NoMatchingScheduleError
		if !errors.As(err, &noMatch) {
			t.Fatalf("expected NoMatchingScheduleError, got %v", err)
		}
		if len(sender.sent) != 0 {
			t.Error("nothing must be sent on an integrity failure")
		}
	})
}

func TestSendAttachments(t *testing.T) {
	rec := testRecord()
	rec.Template.Attachments = []string{"map.pdf"}
	rec.Template.CalendarEvent = true

	sender := &fakeSender{}
	d, paths := newTestDispatcher(t, sender, []store.ScheduleEntry{rec.Entry})

	if _, err := d.Send(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mail := sender.sent[0]
	if len(mail.attachments) != 2 {
		t.Fatalf("expected attachment plus invite, got %v", mail.attachments)
	}
	if mail.attachments[0] != filepath.Join(paths.AttachmentsDir, "map.pdf") {
		t.Errorf("explicit attachment must come first: %v", mail.attachments)
	}
	if !strings.HasSuffix(mail.attachments[1], "calendarInvite.ics") {
		t.Errorf("calendar invite must come last: %v", mail.attachments)
	}
}

func TestSendWithoutBrokenInvite(t *testing.T) {
	rec := testRecord()
	rec.Template.CalendarEvent = true
	rec.Participant.VisitTimes[1] = ""

	sender := &fakeSender{}
	d, _ := newTestDispatcher(t, sender, []store.ScheduleEntry{rec.Entry})

	if _, err := d.Send(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatal("mail must still go out without the invite")
	}
	if len(sender.sent[0].attachments) != 0 {
		t.Errorf("broken invite must be dropped, got %v", sender.sent[0].attachments)
	}
}
