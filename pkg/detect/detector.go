// Package detect locates face bounding boxes in a frame at bounded
// computational cost, amortizing detection across frames at lower
// quality tiers.
package detect

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/playalter/maskstream/pkg/debug"
	"github.com/playalter/maskstream/pkg/quality"
	"github.com/playalter/maskstream/pkg/track"
)

// Haar cascade sensitivity. Tuned for speed over recall: larger scale
// steps and fewer neighbor confirmations than the OpenCV defaults.
const (
	cascadeScaleFactor  = 1.3
	cascadeMinNeighbors = 3
)

// CascadeDetector runs a Haar cascade over a down-scaled copy of each
// frame. The active quality tier drives the scale factor, the minimum
// face size, the face cap, and how many frames get skipped between
// detection passes.
type CascadeDetector struct {
	optimizer *quality.Optimizer
	cascade   gocv.CascadeClassifier

	mu          sync.Mutex // Protects inference and skip state
	skipCounter int
	last        []track.Box
}

// NewCascade loads a Haar cascade from the given XML file. A missing or
// unloadable cascade is a construction-time failure; nothing after this
// point returns a fatal error per frame.
func NewCascade(cascadePath string, opt *quality.Optimizer) (*CascadeDetector, error) {
	if _, err := os.Stat(cascadePath); os.IsNotExist(err) {
		return nil, errors.Errorf("cascade file not found: %s", cascadePath)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cascadePath) {
		cascade.Close()
		return nil, errors.Errorf("load cascade: %s", cascadePath)
	}

	return &CascadeDetector{
		optimizer: opt,
		cascade:   cascade,
	}, nil
}

// Detect finds face boxes in the frame. Returned coordinates are always
// in original-frame pixel space regardless of internal down-scaling. An
// empty result means no faces, never an error; a bad frame counts as
// zero faces.
func (d *CascadeDetector) Detect(img gocv.Mat) []track.Box {
	settings := d.optimizer.CurrentSettings()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Frame skipping: reuse the previous pass at lower tiers.
	if d.skipCounter < settings.SkipFrames {
		d.skipCounter++
		return d.last
	}
	d.skipCounter = 0

	if img.Empty() {
		return nil
	}

	scale := settings.DetectionScale
	width := img.Cols()
	height := img.Rows()

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(img, &small, image.Pt(int(float64(width)/scale), int(float64(height)/scale)), 0, 0, gocv.InterpolationLinear)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)

	rects := d.cascade.DetectMultiScaleWithParams(
		gray,
		cascadeScaleFactor,
		cascadeMinNeighbors,
		0,
		image.Pt(settings.MinFaceSize, settings.MinFaceSize),
		image.Pt(0, 0),
	)

	boxes := make([]track.Box, 0, len(rects))
	for i, r := range rects {
		if i >= settings.MaxFaces {
			break
		}
		// Rescale back to original-frame coordinates.
		boxes = append(boxes, track.Box{
			X: int(float64(r.Min.X) * scale),
			Y: int(float64(r.Min.Y) * scale),
			W: int(float64(r.Dx()) * scale),
			H: int(float64(r.Dy()) * scale),
		})
	}

	if len(boxes) > 0 {
		debug.FrameLog("detect: %d face(s) at tier %s\n", len(boxes), d.optimizer.CurrentTier())
	}

	d.last = boxes
	return boxes
}

// LastDetections returns the most recent detection result.
func (d *CascadeDetector) LastDetections() []track.Box {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Close releases the cascade resources.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cascade.Close()
}
