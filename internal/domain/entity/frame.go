package entity

import "time"

// FrameMetadata describes one sampled, saved frame. Records are created once
// during extraction and never mutated; they are deleted only together with
// the owning job. The JSON shape doubles as the cache serialization and the
// API view.
type FrameMetadata struct {
	JobID     string    `json:"job_id"`
	Timestamp float64   `json:"timestamp"`
	FramePath string    `json:"frame_path"`
	FileSize  int64     `json:"file_size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
