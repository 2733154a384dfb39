// Package transfer implements the orchestrator that sequences one job:
// filename resolution, download, validation, path resolution, upload,
// and verification. Stages run strictly in order; a failure in any stage
// aborts the rest with a stage-tagged outcome.
package transfer

import (
	"fmt"
	"time"
)

// Stage identifies where in the pipeline a job failed.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageDownload Stage = "download"
	StageValidate Stage = "validate"
	StageUpload   Stage = "upload"
	StageVerify   Stage = "verify"
)

// State is the job's position in the pipeline.
type State string

const (
	StatePending     State = "pending"
	StateDownloading State = "downloading"
	StateDownloaded  State = "downloaded"
	StateUploading   State = "uploading"
	StateUploaded    State = "uploaded"
	StateFailed      State = "failed"
)

// Outcome is the job's terminal result as a tagged variant: either
// succeeded, or failed at a named stage with a reason.
type Outcome struct {
	Succeeded bool
	Stage     Stage // set only on failure
	Reason    string
}

func (o Outcome) String() string {
	if o.Succeeded {
		return "succeeded"
	}
	return fmt.Sprintf("failed at %s: %s", o.Stage, o.Reason)
}

// Job is the working state of one transfer attempt. Each job is owned by
// exactly one orchestrator execution; nothing is shared between jobs.
type Job struct {
	SourceURL       string
	StartedAt       time.Time
	LocalFilename   string
	LocalBytes      int64
	DestinationPath string
	UploadVerified  bool

	State   State
	Outcome *Outcome
}

// NewJob creates a job in its initial state.
func NewJob(sourceURL string, startedAt time.Time) *Job {
	return &Job{
		SourceURL: sourceURL,
		StartedAt: startedAt,
		State:     StatePending,
	}
}

// fail moves the job into its absorbing failure state.
func (j *Job) fail(stage Stage, err error) *Outcome {
	j.State = StateFailed
	j.Outcome = &Outcome{Stage: stage, Reason: err.Error()}
	return j.Outcome
}

// succeed marks the terminal success state.
func (j *Job) succeed() *Outcome {
	j.State = StateUploaded
	j.Outcome = &Outcome{Succeeded: true}
	return j.Outcome
}
