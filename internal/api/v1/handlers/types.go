package handlers

// ErrorResponse is the JSON body returned on any handler error
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitResponse is returned when a job is accepted
type SubmitResponse struct {
	JobID         string  `json:"job_id"`
	Status        string  `json:"status"`
	TotalPages    int     `json:"total_pages"`
	EstimatedTime string  `json:"estimated_time"`
	Progress      float64 `json:"progress"`
}

// StatusResponse is returned by the status query
type StatusResponse struct {
	JobID          string  `json:"job_id"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	TotalPages     int     `json:"total_pages"`
	ProcessedPages int     `json:"processed_pages"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	Error          string  `json:"error,omitempty"`
}

// ActiveJob is one non-terminal job in the queue status listing
type ActiveJob struct {
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	TotalPages int     `json:"total_pages"`
}

// QueueStatusResponse reports per-stage pending counts and active jobs
type QueueStatusResponse struct {
	Pending    map[string]int64 `json:"pending"`
	ActiveJobs []ActiveJob      `json:"active_jobs"`
}
