// Package pipeline runs the per-frame processing chain:
// detect → track → mask → measure → adapt. One Processor per streaming
// session; sessions never share trackers, caches, or stats.
package pipeline

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/playalter/maskstream/internal/config"
	"github.com/playalter/maskstream/pkg/detect"
	"github.com/playalter/maskstream/pkg/frame"
	"github.com/playalter/maskstream/pkg/mask"
	"github.com/playalter/maskstream/pkg/quality"
	"github.com/playalter/maskstream/pkg/track"
)

// FaceDetector is the detection stage contract. The cascade detector
// satisfies it; tests substitute fixed-output stubs.
type FaceDetector interface {
	Detect(img gocv.Mat) []track.Box
	Close() error
}

// Config holds the construction parameters for a Processor. Zero values
// fall back to the process defaults.
type Config struct {
	CascadePath string
	TargetFPS   int
	JPEGQuality int
}

// Processor is the top-level per-frame pipeline. It is invoked
// sequentially from a single connection's receive loop; the stats
// mutex only covers reads from other goroutines (monitor handlers).
type Processor struct {
	optimizer  *quality.Optimizer
	tracker    *track.Tracker
	detector   FaceDetector
	applicator *mask.Applicator
	codec      *frame.Codec

	mu         sync.RWMutex
	stats      Stats
	frameCount int
	lastTick   time.Time
	lastFrame  time.Time
}

// New constructs a processor with a real cascade detector. Failure to
// load the cascade is the only fatal error; per-frame problems after
// this never propagate.
func New(cfg Config) (*Processor, error) {
	if cfg.CascadePath == "" {
		cfg.CascadePath = config.DefaultCascadePath
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = config.DefaultTargetFPS
	}

	opt := quality.NewOptimizer(cfg.TargetFPS)
	detector, err := detect.NewCascade(cfg.CascadePath, opt)
	if err != nil {
		return nil, err
	}

	return NewWithDetector(opt, detector, cfg.JPEGQuality), nil
}

// NewWithDetector wires the stages around an existing detection stage.
// Useful when the detector backend is provided by the caller.
func NewWithDetector(opt *quality.Optimizer, detector FaceDetector, jpegQuality int) *Processor {
	return &Processor{
		optimizer:  opt,
		tracker:    track.NewTracker(),
		detector:   detector,
		applicator: mask.NewApplicator(opt),
		codec:      frame.NewCodec(jpegQuality),
		lastTick:   time.Now(),
	}
}

// ProcessFrame decodes an encoded frame, runs the full pipeline, and
// returns the re-encoded masked frame plus a performance snapshot.
// Undecodable frames are dropped and counted, never fatal: the returned
// error wraps frame.ErrDecode and the connection should simply move on
// to the next frame.
func (p *Processor) ProcessFrame(data []byte, maskCfg mask.Config) ([]byte, PerfInfo, error) {
	img, err := p.codec.Decode(data)
	if err != nil {
		p.recordDrop()
		return nil, p.snapshot(0, 0), err
	}
	defer img.Close()

	result, masked, perf := p.ProcessMat(img, maskCfg)
	if masked {
		defer result.Close()
	}

	encoded, err := p.codec.Encode(result)
	if err != nil {
		p.recordDrop()
		return nil, perf, err
	}
	return encoded, perf, nil
}

// ProcessMat runs the pipeline on an already decoded frame. The second
// return reports whether a fresh frame was allocated: when false the
// returned Mat is the input itself and must not be closed separately.
func (p *Processor) ProcessMat(img gocv.Mat, maskCfg mask.Config) (gocv.Mat, bool, PerfInfo) {
	start := time.Now()
	if !p.lastFrame.IsZero() {
		p.optimizer.RecordFrameInterval(start.Sub(p.lastFrame))
	}
	p.lastFrame = start

	boxes := p.detector.Detect(img)
	tracked := p.tracker.Update(boxes)

	result := img
	applied := false
	if maskCfg.Type != mask.TypeOff {
		result, applied = p.applicator.Apply(img, tracked, maskCfg)
	}

	elapsed := time.Since(start)
	p.optimizer.AdaptiveControl(elapsed)
	p.updateStats(elapsed, len(tracked))

	return result, applied, p.snapshot(elapsed, len(tracked))
}

// Stats returns the current rolling aggregate.
func (p *Processor) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Report returns the detailed performance summary.
func (p *Processor) Report() Report {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := p.stats.TotalFrames
	if total < 1 {
		total = 1
	}
	return Report{
		FPS:           p.stats.CurrentFPS,
		AvgLatencyMS:  p.stats.AvgLatencyMS,
		DroppedFrames: p.stats.DroppedFrames,
		TotalFrames:   p.stats.TotalFrames,
		DropRate:      float64(p.stats.DroppedFrames) / float64(total),
		Quality:       p.optimizer.CurrentTier(),
		FacesDetected: p.stats.FacesDetected,
	}
}

// Close releases the detector and the mask cache. Call once when the
// owning connection ends.
func (p *Processor) Close() error {
	p.applicator.Close()
	return p.detector.Close()
}

// updateStats folds one frame's timing into the rolling aggregate.
func (p *Processor) updateStats(elapsed time.Duration, faces int) {
	p.optimizer.RecordProcessingTime(elapsed)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	p.stats.TotalFrames++
	p.stats.FacesDetected = faces

	// Recompute FPS once per wall-clock second.
	now := time.Now()
	if since := now.Sub(p.lastTick); since >= time.Second {
		p.stats.CurrentFPS = float64(p.frameCount) / since.Seconds()
		p.frameCount = 0
		p.lastTick = now
	}

	p.stats.AvgLatencyMS = float64(p.optimizer.AvgProcessing()) / float64(time.Millisecond)

	if elapsed > p.optimizer.TargetFrameTime() {
		p.stats.DroppedFrames++
	}
}

// recordDrop counts a frame that never made it through the pipeline.
func (p *Processor) recordDrop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.TotalFrames++
	p.stats.DroppedFrames++
}

// snapshot builds a PerfInfo for the frame just processed.
func (p *Processor) snapshot(elapsed time.Duration, faces int) PerfInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PerfInfo{
		ProcessingTimeMS: float64(elapsed) / float64(time.Millisecond),
		FacesDetected:    faces,
		Quality:          p.optimizer.CurrentTier(),
		Stats:            p.stats,
	}
}
