package history

import "time"

// Status is the terminal state of a run.
type Status string

const (
	// StatusSuccess means a collage file was written.
	StatusSuccess Status = "success"
	// StatusFailed means the run stopped on an error.
	StatusFailed Status = "failed"
	// StatusStopped means the run was cancelled.
	StatusStopped Status = "stopped"
)

// Run is one recorded collage run.
type Run struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Status     Status        `json:"status"`
	Inputs     int           `json:"inputs"`
	Loaded     int           `json:"loaded"`
	Failed     int           `json:"failed"`
	Survivors  int           `json:"survivors"`
	Duplicates int           `json:"duplicates"`
	Cols       int           `json:"cols,omitempty"`
	Rows       int           `json:"rows,omitempty"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	OutputPath string        `json:"outputPath,omitempty"`
	Error      string        `json:"error,omitempty"`
}
