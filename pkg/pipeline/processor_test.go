package pipeline

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/playalter/maskstream/pkg/frame"
	"github.com/playalter/maskstream/pkg/mask"
	"github.com/playalter/maskstream/pkg/quality"
	"github.com/playalter/maskstream/pkg/track"
)

// stubDetector returns a fixed set of boxes every frame.
type stubDetector struct {
	boxes []track.Box
}

func (d *stubDetector) Detect(gocv.Mat) []track.Box { return d.boxes }
func (d *stubDetector) Close() error                { return nil }

func newTestProcessor(boxes []track.Box) *Processor {
	opt := quality.NewOptimizer(30)
	return NewWithDetector(opt, &stubDetector{boxes: boxes}, frame.DefaultJPEGQuality)
}

func testFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(64, 64, 64, 0), 720, 1280, gocv.MatTypeCV8UC3)
}

func TestProcessor_ThreeStableFacesAcrossFrames(t *testing.T) {
	boxes := []track.Box{
		{X: 100, Y: 100, W: 100, H: 100},
		{X: 400, Y: 100, W: 100, H: 100},
		{X: 700, Y: 100, W: 100, H: 100},
	}
	p := newTestProcessor(boxes)
	defer p.Close()

	img := testFrame()
	defer img.Close()

	var firstIDs map[int]bool
	for i := 0; i < 5; i++ {
		out, masked, perf := p.ProcessMat(img, mask.Config{Type: mask.TypeBlur, Intensity: 0.7})
		if masked {
			out.Close()
		}
		if perf.FacesDetected != 3 {
			t.Fatalf("frame %d: FacesDetected = %d, want 3", i, perf.FacesDetected)
		}

		ids := make(map[int]bool)
		for id := range p.tracker.Update(boxes) {
			ids[id] = true
		}
		if firstIDs == nil {
			firstIDs = ids
			continue
		}
		for id := range firstIDs {
			if !ids[id] {
				t.Fatalf("frame %d: track %d vanished", i, id)
			}
		}
	}
}

func TestProcessor_ReappearanceGetsFreshID(t *testing.T) {
	det := &stubDetector{boxes: []track.Box{{X: 200, Y: 200, W: 100, H: 100}}}
	p := NewWithDetector(quality.NewOptimizer(30), det, frame.DefaultJPEGQuality)
	defer p.Close()

	img := testFrame()
	defer img.Close()

	run := func() PerfInfo {
		out, masked, perf := p.ProcessMat(img, mask.Config{Type: mask.TypeOff})
		if masked {
			out.Close()
		}
		return perf
	}

	for i := 0; i < 3; i++ {
		if perf := run(); perf.FacesDetected != 1 {
			t.Fatalf("present frame %d: %d faces", i, perf.FacesDetected)
		}
	}
	firstID := -1
	for id := range p.tracker.Update(det.boxes) {
		firstID = id
	}

	// Absent past the disappearance timeout, then back at the same spot.
	det.boxes = nil
	for i := 0; i <= track.DefaultMaxDisappeared+1; i++ {
		run()
	}
	det.boxes = []track.Box{{X: 200, Y: 200, W: 100, H: 100}}
	run()

	for id := range p.tracker.Update(det.boxes) {
		if id == firstID {
			t.Fatalf("retired ID %d reused after reappearance", firstID)
		}
	}
}

func TestProcessor_OffMaskReturnsInputFrame(t *testing.T) {
	p := newTestProcessor([]track.Box{{X: 10, Y: 10, W: 100, H: 100}})
	defer p.Close()

	img := testFrame()
	defer img.Close()

	out, masked, _ := p.ProcessMat(img, mask.Config{Type: mask.TypeOff})
	if masked {
		t.Fatal("off mask allocated a frame")
	}
	if out.Ptr() != img.Ptr() {
		t.Fatal("off mask did not pass the input through")
	}
}

func TestProcessor_SustainedOverloadDegradesAndDrops(t *testing.T) {
	p := newTestProcessor(nil)
	defer p.Close()

	// 40 frames at a simulated 200ms against a 33ms budget: the tier
	// must bottom out at performance with a non-zero drop count.
	for i := 0; i < 40; i++ {
		p.optimizer.AdaptiveControl(200 * time.Millisecond)
		p.updateStats(200*time.Millisecond, 0)
	}

	if tier := p.optimizer.CurrentTier(); tier != quality.TierPerformance {
		t.Errorf("tier = %s, want %s", tier, quality.TierPerformance)
	}
	stats := p.Stats()
	if stats.DroppedFrames == 0 {
		t.Error("expected a non-zero dropped-frame count")
	}
	if stats.TotalFrames != 40 {
		t.Errorf("TotalFrames = %d, want 40", stats.TotalFrames)
	}
	if stats.AvgLatencyMS != 200 {
		t.Errorf("AvgLatencyMS = %v, want 200", stats.AvgLatencyMS)
	}

	report := p.Report()
	if report.DropRate != 1 {
		t.Errorf("DropRate = %v, want 1", report.DropRate)
	}
}

func TestProcessor_UndecodableFrameIsCountedNotFatal(t *testing.T) {
	p := newTestProcessor(nil)
	defer p.Close()

	out, _, err := p.ProcessFrame([]byte("not a jpeg"), mask.DefaultConfig())
	if !errors.Is(err, frame.ErrDecode) {
		t.Fatalf("err = %v, want frame.ErrDecode", err)
	}
	if out != nil {
		t.Fatal("dropped frame produced output")
	}

	stats := p.Stats()
	if stats.DroppedFrames != 1 || stats.TotalFrames != 1 {
		t.Fatalf("stats = %+v, want 1 dropped of 1", stats)
	}
}

func TestProcessor_RoundTrip(t *testing.T) {
	p := newTestProcessor([]track.Box{{X: 100, Y: 100, W: 200, H: 200}})
	defer p.Close()

	img := testFrame()
	defer img.Close()

	codec := frame.NewCodec(frame.DefaultJPEGQuality)
	encoded, err := codec.Encode(img)
	if err != nil {
		t.Fatalf("encode input: %v", err)
	}

	out, perf, err := p.ProcessFrame(encoded, mask.Config{Type: mask.TypePixelate, Intensity: 0.5})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty output frame")
	}
	if perf.FacesDetected != 1 {
		t.Errorf("FacesDetected = %d, want 1", perf.FacesDetected)
	}

	decoded, err := codec.Decode(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	defer decoded.Close()
	if decoded.Cols() != 1280 || decoded.Rows() != 720 {
		t.Errorf("output dims %dx%d, want 1280x720", decoded.Cols(), decoded.Rows())
	}
}
