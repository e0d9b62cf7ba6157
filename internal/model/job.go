package model

import "time"

// JobKind selects the operation a job performs.
type JobKind string

const (
	JobKindScan  JobKind = "scan"
	JobKindPrint JobKind = "print"
	JobKindBatch JobKind = "batch"
)

// JobStatus is the job state machine position.
//
//	queued -> running -> completed | failed
//	completed -> delivering -> delivered | delivery_failed
//	delivery_failed -> delivering (explicit retry only)
type JobStatus string

const (
	JobQueued         JobStatus = "queued"
	JobRunning        JobStatus = "running"
	JobCompleted      JobStatus = "completed"
	JobFailed         JobStatus = "failed"
	JobDelivering     JobStatus = "delivering"
	JobDelivered      JobStatus = "delivered"
	JobDeliveryFailed JobStatus = "delivery_failed"
)

// Terminal reports whether automatic processing is finished for this status.
// delivery_failed stays mutable through the explicit retry action.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobFailed, JobDelivered, JobDeliveryFailed:
		return true
	}
	return false
}

// JobParams carries the requested scan/print profile options.
type JobParams struct {
	ProfileID      string `json:"profile_id,omitempty"`
	DPI            int    `json:"dpi,omitempty"`
	ColorMode      string `json:"color_mode,omitempty"`
	PaperSize      string `json:"paper_size,omitempty"`
	Format         string `json:"format,omitempty"`
	Copies         int    `json:"copies,omitempty"`
	Pages          int    `json:"pages,omitempty"`
	FilenamePrefix string `json:"filename_prefix,omitempty"`
	SourceDocument string `json:"source_document,omitempty"`
}

// ScanProfile is a named preset for JobParams.
type ScanProfile struct {
	ID        string `json:"id"`
	DPI       int    `json:"dpi"`
	ColorMode string `json:"color_mode"`
	PaperSize string `json:"paper_size"`
	Format    string `json:"format"`
}

// DefaultScanProfiles are the built-in presets offered by the API. Submitters
// may still override any single parameter.
func DefaultScanProfiles() []ScanProfile {
	return []ScanProfile{
		{ID: "document", DPI: 300, ColorMode: "Gray", PaperSize: "A4", Format: "pdf"},
		{ID: "document-color", DPI: 300, ColorMode: "Color", PaperSize: "A4", Format: "pdf"},
		{ID: "photo", DPI: 600, ColorMode: "Color", PaperSize: "A4", Format: "jpeg"},
		{ID: "draft", DPI: 150, ColorMode: "Gray", PaperSize: "A4", Format: "pdf"},
	}
}

// Job is a persisted unit of scan/print/delivery work.
type Job struct {
	ID           string    `json:"id"`
	Kind         JobKind   `json:"kind"`
	DeviceID     string    `json:"device_id"`
	TargetID     *string   `json:"target_id,omitempty"`
	Params       JobParams `json:"params"`
	Status       JobStatus `json:"status"`
	ArtifactPath *string   `json:"artifact_path,omitempty"`
	Error        *string   `json:"error,omitempty"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
