package pipeline

import "github.com/playalter/maskstream/pkg/quality"

// Stats is the rolling per-session aggregate, mutated every processed
// frame and read on demand by the streaming layer.
type Stats struct {
	CurrentFPS    float64 `json:"current_fps"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	DroppedFrames int64   `json:"dropped_frames"`
	TotalFrames   int64   `json:"total_frames"`
	FacesDetected int     `json:"faces_detected"`
}

// PerfInfo is the per-frame snapshot returned alongside each processed
// frame; it feeds the client-side quality display and the adaptive loop.
type PerfInfo struct {
	ProcessingTimeMS float64      `json:"processing_time_ms"`
	FacesDetected    int          `json:"faces_detected"`
	Quality          quality.Tier `json:"current_quality"`
	Stats            Stats        `json:"stats"`
}

// Report is the detailed on-demand performance summary.
type Report struct {
	FPS           float64      `json:"fps"`
	AvgLatencyMS  float64      `json:"avg_latency_ms"`
	DroppedFrames int64        `json:"dropped_frames"`
	TotalFrames   int64        `json:"total_frames"`
	DropRate      float64      `json:"drop_rate"`
	Quality       quality.Tier `json:"current_quality"`
	FacesDetected int          `json:"faces_detected"`
}
