package store

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
	TimestampLayout = "2006-01-02 15:04:05"

	// VisitSlots is the number of ordered visit slots per participant (V1..V7).
	VisitSlots = 7

	// RefSignup is the sentinel reference visit meaning "day of signup".
	RefSignup = "Signup"
)

// Participant is one row of the visit schedule table.
type Participant struct {
	ParticipantID string             `json:"participantId"`
	Active        bool               `json:"active"`
	Arm           string             `json:"arm"`
	FirstName     string             `json:"firstName"`
	LastName      string             `json:"lastName"`
	Email         string             `json:"email"`
	VisitDates    [VisitSlots]string `json:"visitDates"`
	VisitTimes    [VisitSlots]string `json:"visitTimes"`

	// Extra holds registration columns the scheduler does not interpret
	// (gender, researchers, movie assignments, ...), keyed by column name.
	Extra map[string]string `json:"extra,omitempty"`
}

// VisitIndex maps a reference visit name ("V1".."V7") to its slot index.
func VisitIndex(ref string) (int, error) {
	if len(ref) != 2 || ref[0] != 'V' {
		return 0, fmt.Errorf("invalid reference visit '%s'", ref)
	}
	n, err := strconv.Atoi(ref[1:])
	if err != nil || n < 1 || n > VisitSlots {
		return 0, fmt.Errorf("invalid reference visit '%s'", ref)
	}
	return n - 1, nil
}

func (p *Participant) VisitDate(ref string) (string, error) {
	i, err := VisitIndex(ref)
	if err != nil {
		return "", err
	}
	return p.VisitDates[i], nil
}

func (p *Participant) VisitTime(ref string) (string, error) {
	i, err := VisitIndex(ref)
	if err != nil {
		return "", err
	}
	return p.VisitTimes[i], nil
}

// EmailTemplate is one row of the template catalog.
type EmailTemplate struct {
	EmailCode     string   `json:"emailCode"`
	Subject       string   `json:"subject"`
	EmailBody     string   `json:"emailBody"`
	Offset        int      `json:"offset"`
	VisitNumber   string   `json:"visitNumber"`
	Attachments   []string `json:"attachments,omitempty"`
	CalendarEvent bool     `json:"calendarEvent"`
}

// ArmSuffix returns the arm-restriction suffix of the email code
// (e.g. "AA" for "REMIND-AA"), or an empty string for unrestricted codes.
func (t EmailTemplate) ArmSuffix() string {
	idx := strings.LastIndex(t.EmailCode, "-")
	if idx < 0 {
		return ""
	}
	return t.EmailCode[idx+1:]
}

// ScheduleEntry is one row of the email schedule table. At most one entry
// exists per (participant, email code) pair.
type ScheduleEntry struct {
	ParticipantID string `json:"participantId"`
	EmailCode     string `json:"emailCode"`
	ScheduledDate string `json:"scheduledDate"`
	UpdatedAt     string `json:"updatedAt"`
}

// Receipt is one row of the append-only email log.
type Receipt struct {
	ParticipantID string `json:"participantId"`
	EmailCode     string `json:"emailCode"`
	ScheduledFor  string `json:"scheduledFor"`
	SentAt        string `json:"sentAt"`
	Status        bool   `json:"status"`
}

// ReceiptLog wraps the loaded email log rows.
type ReceiptLog struct {
	Receipts []Receipt
}

// Blocks reports whether a logged receipt prevents (pid, code) from being
// scheduled or sent again. With retryFailedSends, only successful receipts
// count; otherwise any dispatch attempt is terminal.
func (l ReceiptLog) Blocks(pid string, code string, retryFailedSends bool) bool {
	for _, r := range l.Receipts {
		if r.ParticipantID != pid || r.EmailCode != code {
			continue
		}
		if r.Status || !retryFailedSends {
			return true
		}
	}
	return false
}
