package scheduling

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/joannku/unity-scheduler/pkg/store"
)

// DefaultArmSuffixes maps email-code suffixes to the treatment arm they are
// restricted to.
var DefaultArmSuffixes = map[string]string{
	"HA": "Healthy Arm",
	"AA": "Alcohol Arm",
}

type Options struct {
	// ArmSuffixes maps email-code suffixes to arm names; nil uses
	// DefaultArmSuffixes.
	ArmSuffixes map[string]string

	// RetryFailedSends controls the idempotency guard: when false (the
	// default), any logged dispatch attempt for a (participant, code) pair
	// is terminal; when true, failed attempts may be re-scheduled.
	RetryFailedSends bool

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Scheduler reconciles the email schedule table against the visit schedule
// and template catalog, and selects the entries due for dispatch.
type Scheduler struct {
	store            *store.StoreService
	armSuffixes      map[string]string
	retryFailedSends bool
	now              func() time.Time
}

func New(s *store.StoreService, opts Options) *Scheduler {
	suffixes := opts.ArmSuffixes
	if suffixes == nil {
		suffixes = DefaultArmSuffixes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:            s,
		armSuffixes:      suffixes,
		retryFailedSends: opts.RetryFailedSends,
		now:              now,
	}
}

func (sch *Scheduler) today() string {
	return sch.now().Format(store.DateLayout)
}

func (sch *Scheduler) timestamp() string {
	return sch.now().Format(store.TimestampLayout)
}

// armAllowed reports whether a template applies to the given arm. Codes
// without a known arm suffix apply to everyone.
func (sch *Scheduler) armAllowed(tmpl store.EmailTemplate, arm string) bool {
	suffix := tmpl.ArmSuffix()
	if suffix == "" {
		return true
	}
	requiredArm, restricted := sch.armSuffixes[suffix]
	if !restricted {
		return true
	}
	return requiredArm == arm
}

// scheduledDate computes reference-visit date + offset. The Signup sentinel
// uses the current date as reference.
func (sch *Scheduler) scheduledDate(p *store.Participant, tmpl store.EmailTemplate) (string, error) {
	var ref time.Time
	if tmpl.VisitNumber == store.RefSignup {
		ref = sch.now()
	} else {
		visitDate, err := p.VisitDate(tmpl.VisitNumber)
		if err != nil {
			return "", err
		}
		ref, err = time.Parse(store.DateLayout, visitDate)
		if err != nil {
			return "", fmt.Errorf("participant %s has no valid %s_Date: %w", p.ParticipantID, tmpl.VisitNumber, err)
		}
	}
	return ref.AddDate(0, 0, tmpl.Offset).Format(store.DateLayout), nil
}

func sortedCodes(catalog map[string]store.EmailTemplate) []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Synthesize recomputes the email schedule for the given participants.
// Future entries are regenerated from the current visit dates; past entries
// and already-logged emails are never touched. Afterwards the retroactive
// template path extends schedules of all other participants.
func (sch *Scheduler) Synthesize(pids []string) error {
	catalog, err := sch.store.LoadTemplates()
	if err != nil {
		return err
	}
	participants, err := sch.store.LoadParticipants()
	if err != nil {
		return err
	}
	schedule, err := sch.store.LoadSchedule()
	if err != nil {
		return err
	}
	receipts, err := sch.store.LoadReceipts()
	if err != nil {
		return err
	}

	today := sch.today()
	for _, pid := range pids {
		// clean slate: discard the participant's entries dated strictly
		// after today before recomputing
		kept := schedule[:0]
		for _, entry := range schedule {
			if entry.ParticipantID == pid && entry.ScheduledDate > today {
				continue
			}
			kept = append(kept, entry)
		}
		schedule = kept

		participant, found := participants.Find(pid)
		if !found {
			slog.Warn("Participant not found in visit schedule, skipping", slog.String("participantID", pid))
			continue
		}

		schedule = sch.appendMissingEntries(schedule, &participant, catalog, receipts)
	}

	if err := sch.store.SaveSchedule(schedule); err != nil {
		return err
	}
	slog.Info("Email schedule synthesized", slog.Int("participants", len(pids)))

	return sch.RetrofitTemplates()
}

// appendMissingEntries emits a schedule entry for every applicable template
// the participant does not have yet.
func (sch *Scheduler) appendMissingEntries(
	schedule []store.ScheduleEntry,
	participant *store.Participant,
	catalog map[string]store.EmailTemplate,
	receipts store.ReceiptLog,
) []store.ScheduleEntry {
	existing := map[string]bool{}
	for _, entry := range schedule {
		if entry.ParticipantID == participant.ParticipantID {
			existing[entry.EmailCode] = true
		}
	}

	for _, code := range sortedCodes(catalog) {
		tmpl := catalog[code]
		if !sch.armAllowed(tmpl, participant.Arm) {
			continue
		}
		if existing[code] {
			continue
		}
		if receipts.Blocks(participant.ParticipantID, code, sch.retryFailedSends) {
			continue
		}
		date, err := sch.scheduledDate(participant, tmpl)
		if err != nil {
			slog.Error("Cannot compute scheduled date",
				slog.String("participantID", participant.ParticipantID),
				slog.String("emailCode", code),
				slog.String("error", err.Error()))
			continue
		}
		schedule = append(schedule, store.ScheduleEntry{
			ParticipantID: participant.ParticipantID,
			EmailCode:     code,
			ScheduledDate: date,
			UpdatedAt:     sch.timestamp(),
		})
	}
	return schedule
}

// RetrofitTemplates extends the schedules of all participants that already
// have at least one entry with templates added to the catalog since their
// schedule was generated. Participants without any entries are only picked
// up by the per-participant synthesis path.
func (sch *Scheduler) RetrofitTemplates() error {
	catalog, err := sch.store.LoadTemplates()
	if err != nil {
		return err
	}
	participants, err := sch.store.LoadParticipants()
	if err != nil {
		return err
	}
	schedule, err := sch.store.LoadSchedule()
	if err != nil {
		return err
	}
	receipts, err := sch.store.LoadReceipts()
	if err != nil {
		return err
	}

	scheduledPids := []string{}
	seen := map[string]bool{}
	for _, entry := range schedule {
		if !seen[entry.ParticipantID] {
			seen[entry.ParticipantID] = true
			scheduledPids = append(scheduledPids, entry.ParticipantID)
		}
	}

	before := len(schedule)
	for _, pid := range scheduledPids {
		participant, found := participants.Find(pid)
		if !found {
			slog.Warn("Scheduled participant missing from visit schedule", slog.String("participantID", pid))
			continue
		}
		schedule = sch.appendMissingEntries(schedule, &participant, catalog, receipts)
	}

	if len(schedule) == before {
		return nil
	}
	slog.Info("Retrofitted new templates into existing schedules", slog.Int("newEntries", len(schedule)-before))
	return sch.store.SaveSchedule(schedule)
}

// MissingSchedules lists participants from the visit schedule that have no
// email schedule entries at all.
func (sch *Scheduler) MissingSchedules() ([]string, error) {
	participants, err := sch.store.LoadParticipants()
	if err != nil {
		return nil, err
	}
	schedule, err := sch.store.LoadSchedule()
	if err != nil {
		return nil, err
	}

	scheduled := map[string]bool{}
	for _, entry := range schedule {
		scheduled[entry.ParticipantID] = true
	}

	missing := []string{}
	for _, pid := range participants.ParticipantIDs() {
		if !scheduled[pid] {
			missing = append(missing, pid)
		}
	}
	return missing, nil
}
