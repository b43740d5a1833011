package scheduling

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"reflect"
)

// ReconcileChanges compares the externally edited copies of the visit
// schedule and template catalog against the authoritative local files. A
// differing visit schedule triggers re-synthesis for exactly the new or
// changed participants; a differing template catalog triggers the
// retroactive template path.
func (sch *Scheduler) ReconcileChanges() error {
	visitLocal, visitEdited := sch.store.VisitSchedulePaths()
	changed, err := filesDiffer(visitLocal, visitEdited)
	if err != nil {
		slog.Error("Cannot compare visit schedule files", slog.String("error", err.Error()))
	} else if changed {
		slog.Info("Changes detected in visit schedule")
		if err := sch.applyVisitScheduleChanges(visitLocal, visitEdited); err != nil {
			return err
		}
	}

	tmplLocal, tmplEdited := sch.store.EmailTemplatePaths()
	changed, err = filesDiffer(tmplLocal, tmplEdited)
	if err != nil {
		slog.Error("Cannot compare template catalog files", slog.String("error", err.Error()))
		return nil
	}
	if changed {
		slog.Info("Changes detected in template catalog")
		if err := copyFile(tmplEdited, tmplLocal); err != nil {
			return err
		}
		return sch.RetrofitTemplates()
	}
	return nil
}

func (sch *Scheduler) applyVisitScheduleChanges(local string, edited string) error {
	localTable, err := sch.store.LoadParticipants()
	if err != nil {
		return err
	}
	editedTable, err := sch.store.LoadEditedParticipants()
	if err != nil {
		return err
	}

	pids := []string{}
	for _, editedRow := range editedTable.Rows {
		localRow, exists := localTable.Find(editedRow.ParticipantID)
		if !exists {
			slog.Info("New participant registered", slog.String("participantID", editedRow.ParticipantID))
			pids = append(pids, editedRow.ParticipantID)
			continue
		}
		if !reflect.DeepEqual(localRow, editedRow) {
			slog.Info("Visit information updated", slog.String("participantID", editedRow.ParticipantID))
			pids = append(pids, editedRow.ParticipantID)
		}
	}

	if err := copyFile(edited, local); err != nil {
		return err
	}
	if len(pids) == 0 {
		return nil
	}
	return sch.Synthesize(pids)
}

// filesDiffer compares two files byte for byte.
func filesDiffer(a string, b string) (bool, error) {
	contentA, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	contentB, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(contentA, contentB), nil
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
