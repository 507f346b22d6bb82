// Package quality holds the adaptive quality tiers that parameterize the
// frame pipeline, and the optimizer that steps between them based on
// observed per-frame processing cost.
package quality

import (
	"sync"
	"time"
)

// Tier identifies one of the fixed quality presets.
type Tier string

const (
	// TierPerformance trades accuracy for speed: coarse detection, few faces.
	TierPerformance Tier = "performance"
	// TierBalanced is the default middle ground.
	TierBalanced Tier = "balanced"
	// TierQuality favors accuracy: full-ish resolution, more faces.
	TierQuality Tier = "quality"
)

// Settings is the parameter bundle for one quality tier.
type Settings struct {
	DetectionScale float64 // Downscale divisor applied before detection
	MinFaceSize    int     // Minimum face side in pixels (on the scaled frame)
	MaxFaces       int     // Cap on faces returned per frame
	BlurKernel     int     // Gaussian kernel side for the blur effect
	SkipFrames     int     // Frames to reuse prior detections before re-detecting
}

// presets maps each tier to its fixed parameter bundle.
var presets = map[Tier]Settings{
	TierPerformance: {
		DetectionScale: 1.5,
		MinFaceSize:    60,
		MaxFaces:       3,
		BlurKernel:     11,
		SkipFrames:     2,
	},
	TierBalanced: {
		DetectionScale: 1.2,
		MinFaceSize:    40,
		MaxFaces:       5,
		BlurKernel:     15,
		SkipFrames:     1,
	},
	TierQuality: {
		DetectionScale: 1.1,
		MinFaceSize:    30,
		MaxFaces:       8,
		BlurKernel:     19,
		SkipFrames:     0,
	},
}

// Preset returns the parameter bundle for a tier.
func Preset(t Tier) Settings {
	return presets[t]
}

const (
	// DefaultMaxFPS is the frame-rate budget the optimizer steers toward.
	DefaultMaxFPS = 30

	// windowSize is how many recent samples the rolling windows keep.
	windowSize = 30

	// targetHeadroom leaves a 20% buffer under the frame budget.
	targetHeadroom = 0.8
)

// Optimizer tracks recent per-frame processing latency and picks the
// active tier. The controller is greedy and memoryless: every call to
// AdaptiveControl can step the tier at most once, in either direction,
// based on the single most recent sample.
type Optimizer struct {
	maxFPS          int
	targetFrameTime time.Duration

	mu              sync.Mutex
	current         Tier
	frameTimes      []time.Duration
	processingTimes []time.Duration
}

// NewOptimizer creates an optimizer for the given frame-rate budget,
// starting at the balanced tier. maxFPS values below 1 fall back to the
// default.
func NewOptimizer(maxFPS int) *Optimizer {
	if maxFPS < 1 {
		maxFPS = DefaultMaxFPS
	}
	return &Optimizer{
		maxFPS:          maxFPS,
		targetFrameTime: time.Second / time.Duration(maxFPS),
		current:         TierBalanced,
		frameTimes:      make([]time.Duration, 0, windowSize),
		processingTimes: make([]time.Duration, 0, windowSize),
	}
}

// TargetFrameTime returns the per-frame time budget (1/maxFPS).
func (o *Optimizer) TargetFrameTime() time.Duration {
	return o.targetFrameTime
}

// RecordFrameInterval appends a frame-to-frame interval sample,
// evicting the oldest once the window is full.
func (o *Optimizer) RecordFrameInterval(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frameTimes = push(o.frameTimes, d)
}

// RecordProcessingTime appends a per-frame processing cost sample.
func (o *Optimizer) RecordProcessingTime(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.processingTimes = push(o.processingTimes, d)
}

// AvgProcessing returns the mean of the processing-time window, or zero
// when no samples have been recorded.
func (o *Optimizer) AvgProcessing() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.processingTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range o.processingTimes {
		total += d
	}
	return total / time.Duration(len(o.processingTimes))
}

// AdaptiveControl steps the active tier based on the latest frame cost.
// Above 1.5x the buffered target it steps down one tier; below 0.5x it
// steps up one tier. Already-extreme tiers stay put.
func (o *Optimizer) AdaptiveControl(processingTime time.Duration) {
	target := time.Duration(float64(o.targetFrameTime) * targetHeadroom)

	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case processingTime > target+target/2:
		// Too slow, reduce quality
		switch o.current {
		case TierQuality:
			o.current = TierBalanced
		case TierBalanced:
			o.current = TierPerformance
		}
	case processingTime < target/2:
		// Too fast, can increase quality
		switch o.current {
		case TierPerformance:
			o.current = TierBalanced
		case TierBalanced:
			o.current = TierQuality
		}
	}
}

// CurrentTier returns the active tier.
func (o *Optimizer) CurrentTier() Tier {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// CurrentSettings returns the active tier's parameter bundle.
func (o *Optimizer) CurrentSettings() Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return presets[o.current]
}

// push appends to a bounded window, dropping the oldest sample when full.
func push(window []time.Duration, d time.Duration) []time.Duration {
	if len(window) == windowSize {
		copy(window, window[1:])
		window = window[:windowSize-1]
	}
	return append(window, d)
}
