package store

// Paths locates the backing tables of the record store. The "edited" copies
// are written by the external editing surface (admin API); the local copies
// are authoritative for the scheduler run.
type Paths struct {
	VisitScheduleLocal   string `json:"visit_schedule_local" yaml:"visit_schedule_local"`
	VisitScheduleEdited  string `json:"visit_schedule_edited" yaml:"visit_schedule_edited"`
	EmailScheduleLocal   string `json:"email_schedule_local" yaml:"email_schedule_local"`
	EmailTemplatesLocal  string `json:"email_templates_local" yaml:"email_templates_local"`
	EmailTemplatesEdited string `json:"email_templates_edited" yaml:"email_templates_edited"`
	EmailLogLocal        string `json:"email_log_local" yaml:"email_log_local"`
	AttachmentsDir       string `json:"attachments_dir" yaml:"attachments_dir"`
}

// StoreService owns the four tables of the record store. Tables are loaded
// fully into memory by the Load* methods and flushed back by the Save*/Append*
// methods, so every mutating step of a run leaves the files consistent.
type StoreService struct {
	paths Paths
}

func NewStoreService(paths Paths) *StoreService {
	return &StoreService{paths: paths}
}

func (s *StoreService) AttachmentsDir() string {
	return s.paths.AttachmentsDir
}

// VisitSchedulePaths returns the authoritative and the externally edited
// visit schedule file paths.
func (s *StoreService) VisitSchedulePaths() (local string, edited string) {
	return s.paths.VisitScheduleLocal, s.paths.VisitScheduleEdited
}

// EmailTemplatePaths returns the authoritative and the externally edited
// template catalog file paths.
func (s *StoreService) EmailTemplatePaths() (local string, edited string) {
	return s.paths.EmailTemplatesLocal, s.paths.EmailTemplatesEdited
}
