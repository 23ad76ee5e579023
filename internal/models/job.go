package models

import "time"

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Job is a queued page-generation run for one business.
type Job struct {
	ID             string     `json:"id"`
	BusinessID     string     `json:"business_id"`
	Status         JobStatus  `json:"status"`
	PageType       string     `json:"page_type"`
	TotalPages     int        `json:"total_pages"`
	CompletedPages int        `json:"completed_pages"`
	FailedPages    int        `json:"failed_pages"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Progress returns the finished share of pages in [0, 1].
func (j Job) Progress() float64 {
	if j.TotalPages <= 0 {
		return 0
	}
	done := j.CompletedPages + j.FailedPages
	if done >= j.TotalPages {
		return 1
	}
	return float64(done) / float64(j.TotalPages)
}

// JobInput queues a job.
type JobInput struct {
	PageType string `json:"page_type"`
}
