package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned by stores and services when a job id does not
// resolve to a persisted job.
var ErrJobNotFound = errors.New("job not found")

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one request to extract frames from a video source at a fixed
// sampling interval. The metadata store owns the durable representation;
// in-memory copies are transient and always re-readable from the store.
type Job struct {
	ID              string
	Status          JobStatus
	VideoSource     string
	Interval        float64
	TotalFrames     int
	ProcessedFrames int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ErrorMessage    string
}

func NewJob(videoSource string, interval float64) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.NewString(),
		Status:      JobStatusPending,
		VideoSource: videoSource,
		Interval:    interval,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now().UTC()
}

// MarkCompleted fixes TotalFrames to the count actually extracted.
func (j *Job) MarkCompleted(totalFrames int) {
	j.Status = JobStatusCompleted
	j.TotalFrames = totalFrames
	j.UpdatedAt = time.Now().UTC()
}

// MarkFailed records the failure cause verbatim. ProcessedFrames keeps
// whatever count was reached before the error.
func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// Progress bumps the running count of persisted frames.
func (j *Job) Progress(processed int) {
	j.ProcessedFrames = processed
	j.UpdatedAt = time.Now().UTC()
}

// JobView is the externally visible shape of a job.
type JobView struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	VideoSource     string    `json:"video_source"`
	Interval        float64   `json:"interval"`
	TotalFrames     int       `json:"total_frames"`
	ProcessedFrames int       `json:"processed_frames"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
	ErrorMessage    *string   `json:"error_message"`
}

func (j *Job) View() JobView {
	v := JobView{
		JobID:           j.ID,
		Status:          j.Status,
		VideoSource:     j.VideoSource,
		Interval:        j.Interval,
		TotalFrames:     j.TotalFrames,
		ProcessedFrames: j.ProcessedFrames,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.ErrorMessage != "" {
		msg := j.ErrorMessage
		v.ErrorMessage = &msg
	}
	return v
}
