package dispatch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joannku/unity-scheduler/pkg/messaging/calendar"
	"github.com/joannku/unity-scheduler/pkg/messaging/render"
	"github.com/joannku/unity-scheduler/pkg/scheduling"
	"github.com/joannku/unity-scheduler/pkg/store"
)

// MailSender transmits a composed message. Implementations return an error
// on transport or authentication failure; the dispatcher records that as a
// failed receipt instead of aborting the batch.
type MailSender interface {
	SendMail(to []string, subject string, body string, attachments []string) error
}

// NoMatchingScheduleError signals that a send was attempted for a
// (participant, email code) pair without a schedule entry. Given how the
// dispatch set is sourced this should be unreachable; seeing it means the
// record store is inconsistent.
type NoMatchingScheduleError struct {
	ParticipantID string
	EmailCode     string
}

func (e *NoMatchingScheduleError) Error() string {
	return fmt.Sprintf("no schedule entry for participant %s and email code %s", e.ParticipantID, e.EmailCode)
}

const calendarInviteFilename = "calendarInvite.ics"

type Dispatcher struct {
	store  *store.StoreService
	sender MailSender

	// CalendarLocation is the fixed event location for visit invites.
	CalendarLocation string

	// CourtesyDelay is the pause after each send toward the mail provider.
	CourtesyDelay time.Duration

	now func() time.Time
}

func NewDispatcher(s *store.StoreService, sender MailSender, calendarLocation string, courtesyDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		store:            s,
		sender:           sender,
		CalendarLocation: calendarLocation,
		CourtesyDelay:    courtesyDelay,
		now:              time.Now,
	}
}

// Send renders and transmits one due email and returns the receipt for the
// email log. A failed transmission yields a Status=false receipt, not an
// error.
func (d *Dispatcher) Send(rec scheduling.DispatchRecord) (store.Receipt, error) {
	pid := rec.Participant.ParticipantID
	code := rec.Template.EmailCode

	scheduledFor, err := d.scheduledFor(pid, code)
	if err != nil {
		return store.Receipt{}, err
	}

	fields := rec.RenderFields()
	subject := render.Render(rec.Template.Subject, fields)
	body := render.Render(rec.Template.EmailBody, fields)

	attachments := make([]string, 0, len(rec.Template.Attachments)+1)
	for _, name := range rec.Template.Attachments {
		attachments = append(attachments, filepath.Join(d.store.AttachmentsDir(), name))
	}
	if rec.Template.CalendarEvent {
		invitePath, err := d.writeCalendarInvite(rec)
		if err != nil {
			slog.Error("Cannot create calendar invite, sending without it",
				slog.String("participantID", pid),
				slog.String("emailCode", code),
				slog.String("error", err.Error()))
		} else {
			// calendar invite goes last, after explicit attachments
			attachments = append(attachments, invitePath)
		}
	}

	status := true
	if err := d.sender.SendMail([]string{rec.Participant.Email}, subject, body, attachments); err != nil {
		status = false
		slog.Error("Failed to send email",
			slog.String("participantID", pid),
			slog.String("emailCode", code),
			slog.String("error", err.Error()))
	} else {
		slog.Info("Email sent",
			slog.String("participantID", pid),
			slog.String("emailCode", code))
	}

	receipt := store.Receipt{
		ParticipantID: pid,
		EmailCode:     code,
		ScheduledFor:  scheduledFor,
		SentAt:        d.now().Format(store.TimestampLayout),
		Status:        status,
	}

	time.Sleep(d.CourtesyDelay)
	return receipt, nil
}

// scheduledFor re-reads the schedule entry for the pair being sent as a
// consistency check against the store.
func (d *Dispatcher) scheduledFor(pid string, code string) (string, error) {
	schedule, err := d.store.LoadSchedule()
	if err != nil {
		return "", err
	}
	for _, entry := range schedule {
		if entry.ParticipantID == pid && entry.EmailCode == code {
			return entry.ScheduledDate, nil
		}
	}
	return "", &NoMatchingScheduleError{ParticipantID: pid, EmailCode: code}
}

func (d *Dispatcher) writeCalendarInvite(rec scheduling.DispatchRecord) (string, error) {
	visitRef := rec.Template.VisitNumber
	if visitRef == store.RefSignup {
		// signup emails point the invite at the first visit
		visitRef = "V1"
	}
	slot, err := store.VisitIndex(visitRef)
	if err != nil {
		return "", err
	}

	date := rec.Participant.VisitDates[slot]
	clock := rec.Participant.VisitTimes[slot]
	start, err := time.Parse(store.DateLayout+" "+store.ClockLayout, date+" "+clock)
	if err != nil {
		return "", fmt.Errorf("invalid %s date/time for participant %s: %w", visitRef, rec.Participant.ParticipantID, err)
	}

	invite := calendar.VisitInvite(slot+1, rec.Participant.ParticipantID, start, d.CalendarLocation)
	path := filepath.Join(d.store.AttachmentsDir(), calendarInviteFilename)
	if err := invite.WriteFile(path); err != nil {
		return "", err
	}
	return path, nil
}
