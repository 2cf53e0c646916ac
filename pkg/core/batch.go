package core

// JobState is the reported state of the remote batch job.
type JobState string

// Batch job states.
const (
	JobIdle        JobState = "idle"
	JobRunning     JobState = "running"
	JobPaused      JobState = "paused"
	JobCancelled   JobState = "cancelled"
	JobCompleted   JobState = "completed"
	JobUnavailable JobState = "unavailable"
)

// Valid reports whether s is a known job state.
func (s JobState) Valid() bool {
	switch s {
	case JobIdle, JobRunning, JobPaused, JobCancelled, JobCompleted, JobUnavailable:
		return true
	}
	return false
}

// BatchResult is a recently completed batch task.
type BatchResult struct {
	ID         string `json:"id"`
	Query      string `json:"query"`
	Prediction string `json:"prediction"`
}

// BatchError is a recently failed batch task.
type BatchError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchStatus is the polled status of the remote batch job.
type BatchStatus struct {
	State           JobState      `json:"state"`
	CurrentTask     int           `json:"current_task"`
	TotalTasks      int           `json:"total_tasks"`
	Progress        string        `json:"progress"`
	ProgressPercent int           `json:"progress_percent"`
	ElapsedSeconds  int           `json:"elapsed_seconds"`
	SuccessCount    int           `json:"success_count"`
	ErrorCount      int           `json:"error_count"`
	RecentResults   []BatchResult `json:"recent_results,omitempty"`
	RecentErrors    []BatchError  `json:"recent_errors,omitempty"`
}

// BatchConfig is the request body of a batch start command.
type BatchConfig struct {
	BatchSize int    `json:"batch_size,omitempty"`
	Domain    string `json:"domain,omitempty"`
	Count     int    `json:"count,omitempty"`
}
