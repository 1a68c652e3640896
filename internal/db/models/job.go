package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// JobStatus represents the current state of a translation job
type JobStatus string

// Job status constants
const (
	// JobStatusPending indicates the job is queued and waiting for extraction
	JobStatusPending JobStatus = "PENDING"
	// JobStatusExtracting indicates the extraction stage is in progress
	JobStatusExtracting JobStatus = "EXTRACTING"
	// JobStatusChunking indicates the chunking stage is in progress
	JobStatusChunking JobStatus = "CHUNKING"
	// JobStatusTranslating indicates the translation stage is in progress
	JobStatusTranslating JobStatus = "TRANSLATING"
	// JobStatusReconstructing indicates the reconstruction stage is in progress
	JobStatusReconstructing JobStatus = "RECONSTRUCTING"
	// JobStatusCompleted indicates the job finished successfully
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed indicates the job terminated with an error
	JobStatusFailed JobStatus = "FAILED"
)

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status permits no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// validTransitions is the directed graph of permitted status transitions.
// Any non-terminal status may additionally transition to FAILED.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:        {JobStatusExtracting},
	JobStatusExtracting:     {JobStatusChunking},
	JobStatusChunking:       {JobStatusTranslating},
	JobStatusTranslating:    {JobStatusReconstructing},
	JobStatusReconstructing: {JobStatusCompleted},
}

// CanTransitionTo reports whether moving from s to next is a valid
// edge in the status graph
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStatusFailed {
		return true
	}
	for _, v := range validTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// ParseJobStatus converts a string to a JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	switch JobStatus(str) {
	case JobStatusPending, JobStatusExtracting, JobStatusChunking,
		JobStatusTranslating, JobStatusReconstructing,
		JobStatusCompleted, JobStatusFailed:
		return JobStatus(str), nil
	default:
		return "", fmt.Errorf("invalid job status: %q", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for JobStatus
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseJobStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// Tier selects the translation provider quality level
type Tier string

// Translation tier constants
const (
	// TierBasic selects the cheapest provider strategy
	TierBasic Tier = "basic"
	// TierStandard selects the default provider strategy
	TierStandard Tier = "standard"
	// TierPremium selects the highest quality provider strategy
	TierPremium Tier = "premium"
)

// String returns the string representation of the tier
func (t Tier) String() string {
	return string(t)
}

// ParseTier converts a string to a Tier type
func ParseTier(str string) (Tier, error) {
	switch Tier(str) {
	case TierBasic, TierStandard, TierPremium:
		return Tier(str), nil
	default:
		return "", fmt.Errorf("invalid tier: %q", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Tier
func (t *Tier) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	tier, err := ParseTier(str)
	if err != nil {
		return err
	}

	*t = tier
	return nil
}

// Job represents a single document's end-to-end translation request
// and its tracked state
type Job struct {
	ID         string    `json:"job_id"`
	SourcePath string    `json:"source_path"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Tier       Tier      `json:"tier"`
	Status     JobStatus `json:"status"`

	// Progress is in [0,100] and never decreases while the job is non-terminal
	Progress       float64 `json:"progress"`
	TotalPages     int     `json:"total_pages"`
	ProcessedPages int     `json:"processed_pages"`

	// Stage artifacts, each set exactly once by the stage that produces it
	ExtractionOutput  *string `json:"extraction_output,omitempty"`
	TranslationOutput *string `json:"translation_output,omitempty"`
	FinalOutput       *string `json:"final_output,omitempty"`

	// Error is set only on the transition to FAILED, never cleared
	Error *string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Revision is a monotonic optimistic-concurrency token bumped by
	// the store on every successful Put
	Revision int64 `json:"revision"`
}

// Validate ensures the job data is internally consistent
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if _, err := ParseJobStatus(string(j.Status)); err != nil {
		return err
	}
	if _, err := ParseTier(string(j.Tier)); err != nil {
		return err
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("progress out of range: %f", j.Progress)
	}
	if j.TotalPages < 0 || j.ProcessedPages < 0 {
		return fmt.Errorf("page counts cannot be negative")
	}
	if j.FinalOutput != nil && j.Status != JobStatusCompleted {
		return fmt.Errorf("final_output set on non-completed job")
	}
	return nil
}

// absentSentinel marks an optional field with no value in the flat hash
// encoding. The store cannot represent "no value" natively, so this token is
// reserved: a stored value equal to it is indistinguishable from absence.
const absentSentinel = "-"

// Hash field names for the flat record encoding
const (
	fieldID             = "job_id"
	fieldSourcePath     = "source_path"
	fieldSourceLang     = "source_lang"
	fieldTargetLang     = "target_lang"
	fieldTier           = "tier"
	fieldStatus         = "status"
	fieldProgress       = "progress"
	fieldTotalPages     = "total_pages"
	fieldProcessedPages = "processed_pages"
	fieldExtractionOut  = "extraction_output"
	fieldTranslationOut = "translation_output"
	fieldFinalOut       = "final_output"
	fieldError          = "error"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldRevision       = "revision"
)

func encodeOptional(v *string) string {
	if v == nil {
		return absentSentinel
	}
	return *v
}

func decodeOptional(v string) *string {
	if v == absentSentinel {
		return nil
	}
	s := v
	return &s
}

// ToMap encodes the job as a flat string map for the record store
func (j *Job) ToMap() map[string]string {
	return map[string]string{
		fieldID:             j.ID,
		fieldSourcePath:     j.SourcePath,
		fieldSourceLang:     j.SourceLang,
		fieldTargetLang:     j.TargetLang,
		fieldTier:           j.Tier.String(),
		fieldStatus:         j.Status.String(),
		fieldProgress:       strconv.FormatFloat(j.Progress, 'f', -1, 64),
		fieldTotalPages:     strconv.Itoa(j.TotalPages),
		fieldProcessedPages: strconv.Itoa(j.ProcessedPages),
		fieldExtractionOut:  encodeOptional(j.ExtractionOutput),
		fieldTranslationOut: encodeOptional(j.TranslationOutput),
		fieldFinalOut:       encodeOptional(j.FinalOutput),
		fieldError:          encodeOptional(j.Error),
		fieldCreatedAt:      j.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:      j.UpdatedAt.UTC().Format(time.RFC3339Nano),
		fieldRevision:       strconv.FormatInt(j.Revision, 10),
	}
}

// JobFromMap decodes a job from its flat string map encoding, rejecting
// unknown enum values rather than defaulting
func JobFromMap(m map[string]string) (*Job, error) {
	status, err := ParseJobStatus(m[fieldStatus])
	if err != nil {
		return nil, err
	}
	tier, err := ParseTier(m[fieldTier])
	if err != nil {
		return nil, err
	}
	progress, err := strconv.ParseFloat(m[fieldProgress], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid progress: %w", err)
	}
	totalPages, err := strconv.Atoi(m[fieldTotalPages])
	if err != nil {
		return nil, fmt.Errorf("invalid total_pages: %w", err)
	}
	processedPages, err := strconv.Atoi(m[fieldProcessedPages])
	if err != nil {
		return nil, fmt.Errorf("invalid processed_pages: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, m[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, m[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	revision, err := strconv.ParseInt(m[fieldRevision], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid revision: %w", err)
	}

	return &Job{
		ID:                m[fieldID],
		SourcePath:        m[fieldSourcePath],
		SourceLang:        m[fieldSourceLang],
		TargetLang:        m[fieldTargetLang],
		Tier:              tier,
		Status:            status,
		Progress:          progress,
		TotalPages:        totalPages,
		ProcessedPages:    processedPages,
		ExtractionOutput:  decodeOptional(m[fieldExtractionOut]),
		TranslationOutput: decodeOptional(m[fieldTranslationOut]),
		FinalOutput:       decodeOptional(m[fieldFinalOut]),
		Error:             decodeOptional(m[fieldError]),
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		Revision:          revision,
	}, nil
}
