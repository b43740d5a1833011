package calendar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInviteBuild(t *testing.T) {
	inv := Invite{
		Summary:     "UNITY Visit 2 for P001",
		Description: "UNITY Visit 2 for P001",
		Location:    "Imaging Centre, Room 2.04",
		Start:       time.Date(2026, 9, 15, 14, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 9, 15, 17, 0, 0, 0, time.UTC),
	}
	content := inv.Build()

	t.Run("has calendar envelope", func(t *testing.T) {
		if !strings.HasPrefix(content, "BEGIN:VCALENDAR\r\n") {
			t.Error("content must start with BEGIN:VCALENDAR")
		}
		if !strings.HasSuffix(content, "END:VCALENDAR\r\n") {
			t.Error("content must end with END:VCALENDAR and a trailing CRLF")
		}
	})

	t.Run("has event times", func(t *testing.T) {
		for _, want := range []string{"DTSTART:20260915T140000Z", "DTEND:20260915T170000Z"} {
			if !strings.Contains(content, want) {
				t.Errorf("missing %s", want)
			}
		}
	})

	t.Run("has a UID", func(t *testing.T) {
		if !strings.Contains(content, "UID:") {
			t.Error("missing UID line")
		}
	})

	t.Run("unique UID per build", func(t *testing.T) {
		if inv.Build() == content {
			t.Error("two builds must not share a UID")
		}
	})
}

func TestLineFolding(t *testing.T) {
	inv := Invite{
		Summary:  strings.Repeat("long event title ", 10),
		Location: "Lab",
		Start:    time.Date(2026, 9, 15, 14, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 9, 15, 17, 0, 0, 0, time.UTC),
	}
	content := inv.Build()

	for i, line := range strings.Split(strings.TrimSuffix(content, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("line %d exceeds 75 octets: %q", i, line)
		}
	}

	if !strings.Contains(content, "\r\n ") {
		t.Error("expected a space-prefixed continuation line")
	}
}

func TestVisitInvite(t *testing.T) {
	start := time.Date(2026, 9, 15, 14, 0, 0, 0, time.UTC)
	inv := VisitInvite(2, "P001", start, "Imaging Centre")

	if inv.Summary != "UNITY Visit 2 for P001" {
		t.Errorf("unexpected summary: %s", inv.Summary)
	}
	if inv.End.Sub(inv.Start) != 3*time.Hour {
		t.Errorf("visit events must last three hours, got %s", inv.End.Sub(inv.Start))
	}
	if inv.Location != "Imaging Centre" {
		t.Errorf("unexpected location: %s", inv.Location)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendarInvite.ics")
	inv := VisitInvite(1, "P001", time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), "Lab")

	if err := inv.WriteFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(content), "SUMMARY:UNITY Visit 1 for P001") {
		t.Errorf("unexpected file content: %s", content)
	}
}
