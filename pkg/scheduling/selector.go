package scheduling

import (
	"fmt"
	"log/slog"

	"github.com/joannku/unity-scheduler/pkg/store"
)

// DispatchRecord joins the schedule entry with the participant and template
// fields needed for rendering and sending.
type DispatchRecord struct {
	Entry       store.ScheduleEntry
	Participant store.Participant
	Template    store.EmailTemplate
}

// RenderFields exposes the joined record as named template fields.
func (r DispatchRecord) RenderFields() map[string]string {
	fields := map[string]string{
		"ParticipantID": r.Participant.ParticipantID,
		"EmailCode":     r.Entry.EmailCode,
		"ScheduledDate": r.Entry.ScheduledDate,
		"FirstName":     r.Participant.FirstName,
		"LastName":      r.Participant.LastName,
		"Email":         r.Participant.Email,
	}
	for i := 0; i < store.VisitSlots; i++ {
		fields[fmt.Sprintf("V%d_Date", i+1)] = r.Participant.VisitDates[i]
		fields[fmt.Sprintf("V%d_Time", i+1)] = r.Participant.VisitTimes[i]
	}
	return fields
}

// DispatchSet maps participant ID to the records due for that participant,
// keyed by email code.
type DispatchSet map[string]map[string]DispatchRecord

// DueToday returns the schedule entries whose scheduled date equals the
// current date.
func (sch *Scheduler) DueToday() ([]store.ScheduleEntry, error) {
	schedule, err := sch.store.LoadSchedule()
	if err != nil {
		return nil, err
	}

	today := sch.today()
	due := []store.ScheduleEntry{}
	for _, entry := range schedule {
		if entry.ScheduledDate == today {
			due = append(due, entry)
		}
	}
	return due, nil
}

// BuildDispatchSet filters the due entries down to sendable ones and joins
// them with participant and template data. Inactive participants, pairs
// already present in the email log and arm-mismatched codes are dropped;
// the latter two repeat synthesis-time guards as defense in depth.
func (sch *Scheduler) BuildDispatchSet(due []store.ScheduleEntry) (DispatchSet, error) {
	participants, err := sch.store.LoadParticipants()
	if err != nil {
		return nil, err
	}
	catalog, err := sch.store.LoadTemplates()
	if err != nil {
		return nil, err
	}
	receipts, err := sch.store.LoadReceipts()
	if err != nil {
		return nil, err
	}

	set := DispatchSet{}
	for _, entry := range due {
		participant, found := participants.Find(entry.ParticipantID)
		if !found {
			slog.Warn("Due entry without visit schedule row, skipping",
				slog.String("participantID", entry.ParticipantID),
				slog.String("emailCode", entry.EmailCode))
			continue
		}
		if !participant.Active {
			slog.Info("Participant not active, skipping email",
				slog.String("participantID", entry.ParticipantID),
				slog.String("emailCode", entry.EmailCode))
			continue
		}
		if receipts.Blocks(entry.ParticipantID, entry.EmailCode, sch.retryFailedSends) {
			slog.Info("Email already sent, skipping",
				slog.String("participantID", entry.ParticipantID),
				slog.String("emailCode", entry.EmailCode))
			continue
		}
		tmpl, found := catalog[entry.EmailCode]
		if !found {
			slog.Warn("Due entry without template, skipping",
				slog.String("participantID", entry.ParticipantID),
				slog.String("emailCode", entry.EmailCode))
			continue
		}
		if !sch.armAllowed(tmpl, participant.Arm) {
			slog.Info("Email code does not match participant arm, skipping",
				slog.String("participantID", entry.ParticipantID),
				slog.String("emailCode", entry.EmailCode),
				slog.String("arm", participant.Arm))
			continue
		}

		if set[entry.ParticipantID] == nil {
			set[entry.ParticipantID] = map[string]DispatchRecord{}
		}
		set[entry.ParticipantID][entry.EmailCode] = DispatchRecord{
			Entry:       entry,
			Participant: participant,
			Template:    tmpl,
		}
	}
	return set, nil
}
