// Package calendar synthesizes single-event calendar invites in the iCalendar
// interchange format.
package calendar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	icsTimeLayout = "20060102T150405Z"

	// Content lines are folded at 75 octets with a space-prefixed
	// continuation line (RFC 5545 section 3.1).
	foldLimit = 75
)

// Invite describes one calendar event.
type Invite struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Build renders the invite as VCALENDAR content with CRLF line endings.
func (inv Invite) Build() string {
	now := time.Now().UTC()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//UNITY Study//NONSGML v1.0//EN",
		"BEGIN:VEVENT",
		"UID:" + uuid.NewString(),
		"DTSTAMP:" + now.Format(icsTimeLayout),
		"DTSTART:" + inv.Start.Format(icsTimeLayout),
		"DTEND:" + inv.End.Format(icsTimeLayout),
		"SUMMARY:" + inv.Summary,
		"DESCRIPTION:" + inv.Description,
		"LOCATION:" + inv.Location,
		"END:VEVENT",
		"END:VCALENDAR",
	}

	folded := []string{}
	for _, line := range lines {
		folded = append(folded, foldLine(line)...)
	}
	return strings.Join(folded, "\r\n") + "\r\n"
}

// WriteFile writes the rendered invite to the given path.
func (inv Invite) WriteFile(path string) error {
	return os.WriteFile(path, []byte(inv.Build()), 0644)
}

// VisitInvite builds the standard study visit event: start at the visit's
// scheduled time, three hours long.
func VisitInvite(visitNumber int, participantID string, start time.Time, location string) Invite {
	summary := fmt.Sprintf("UNITY Visit %d for %s", visitNumber, participantID)
	return Invite{
		Summary:     summary,
		Description: summary,
		Location:    location,
		Start:       start,
		End:         start.Add(3 * time.Hour),
	}
}

func foldLine(line string) []string {
	if len(line) <= foldLimit {
		return []string{line}
	}
	folded := []string{}
	for len(line) > foldLimit {
		folded = append(folded, line[:foldLimit])
		line = " " + line[foldLimit:]
	}
	return append(folded, line)
}
