package models

import "fmt"

// Stage identifies one of the four ordered processing phases
type Stage string

// Pipeline stages, in processing order
const (
	// StageExtraction pulls text out of the source document
	StageExtraction Stage = "extraction"
	// StageChunking splits extracted text into bounded-size chunks
	StageChunking Stage = "chunking"
	// StageTranslation translates chunks via a provider
	StageTranslation Stage = "translation"
	// StageReconstruction assembles translated chunks into the final output
	StageReconstruction Stage = "reconstruction"
)

// Stages lists all pipeline stages in processing order
var Stages = []Stage{StageExtraction, StageChunking, StageTranslation, StageReconstruction}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// InProgressStatus returns the job status a worker sets when it claims
// a job for this stage
func (s Stage) InProgressStatus() JobStatus {
	switch s {
	case StageExtraction:
		return JobStatusExtracting
	case StageChunking:
		return JobStatusChunking
	case StageTranslation:
		return JobStatusTranslating
	case StageReconstruction:
		return JobStatusReconstructing
	default:
		return JobStatusFailed
	}
}

// Next returns the stage after s, or false when s is the last stage
func (s Stage) Next() (Stage, bool) {
	for i, stage := range Stages {
		if stage == s && i+1 < len(Stages) {
			return Stages[i+1], true
		}
	}
	return "", false
}

// ParseStage converts a string to a Stage type
func ParseStage(str string) (Stage, error) {
	switch Stage(str) {
	case StageExtraction, StageChunking, StageTranslation, StageReconstruction:
		return Stage(str), nil
	default:
		return "", fmt.Errorf("invalid stage: %q", str)
	}
}
