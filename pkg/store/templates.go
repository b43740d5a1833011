package store

import (
	"fmt"
	"strconv"
	"strings"
)

var templateHeader = []string{"EmailCode", "Subject", "EmailBody", "Offset", "VisitNumber", "Attachments", "CalendarEvent"}

func parseAttachments(raw string) []string {
	switch strings.TrimSpace(raw) {
	case "", "None", "none", "NONE", "False", "false":
		return nil
	}
	parts := strings.Split(raw, ",")
	attachments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			attachments = append(attachments, trimmed)
		}
	}
	return attachments
}

func parseCalendarFlag(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "0", "False", "false":
		return false
	}
	return true
}

func loadTemplateCatalog(path string) (map[string]EmailTemplate, error) {
	header, rows, err := ReadTable(path)
	if err != nil {
		return nil, &DataLoadError{Table: path, Err: err}
	}
	idx, err := requireColumns(header, templateHeader...)
	if err != nil {
		return nil, &DataLoadError{Table: path, Err: err}
	}

	catalog := map[string]EmailTemplate{}
	for _, row := range rows {
		offset, err := strconv.Atoi(strings.TrimSpace(row[idx["Offset"]]))
		if err != nil {
			return nil, &DataLoadError{Table: path, Err: fmt.Errorf("invalid offset for template '%s': %w", row[idx["EmailCode"]], err)}
		}
		tmpl := EmailTemplate{
			EmailCode:     row[idx["EmailCode"]],
			Subject:       row[idx["Subject"]],
			EmailBody:     row[idx["EmailBody"]],
			Offset:        offset,
			VisitNumber:   strings.TrimSpace(row[idx["VisitNumber"]]),
			Attachments:   parseAttachments(row[idx["Attachments"]]),
			CalendarEvent: parseCalendarFlag(row[idx["CalendarEvent"]]),
		}
		catalog[tmpl.EmailCode] = tmpl
	}
	return catalog, nil
}

// LoadTemplates resolves the template catalog from the authoritative file.
// The catalog is keyed by email code and treated as read-only during a run.
func (s *StoreService) LoadTemplates() (map[string]EmailTemplate, error) {
	return loadTemplateCatalog(s.paths.EmailTemplatesLocal)
}

// LoadEditedTemplates reads the externally edited template catalog copy.
func (s *StoreService) LoadEditedTemplates() (map[string]EmailTemplate, error) {
	return loadTemplateCatalog(s.paths.EmailTemplatesEdited)
}

// SaveEditedTemplates replaces the edited template catalog copy.
func (s *StoreService) SaveEditedTemplates(templates []EmailTemplate) error {
	rows := make([][]string, 0, len(templates))
	for _, tmpl := range templates {
		calendarFlag := "0"
		if tmpl.CalendarEvent {
			calendarFlag = "1"
		}
		rows = append(rows, []string{
			tmpl.EmailCode,
			tmpl.Subject,
			tmpl.EmailBody,
			strconv.Itoa(tmpl.Offset),
			tmpl.VisitNumber,
			strings.Join(tmpl.Attachments, ","),
			calendarFlag,
		})
	}
	return WriteTable(s.paths.EmailTemplatesEdited, templateHeader, rows)
}
