package detect

import (
	"os"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/playalter/maskstream/internal/config"
	"github.com/playalter/maskstream/pkg/quality"
	"github.com/playalter/maskstream/pkg/track"
)

func TestNewCascade_MissingFile(t *testing.T) {
	_, err := NewCascade("does/not/exist.xml", quality.NewOptimizer(30))
	if err == nil {
		t.Fatal("expected error for missing cascade file")
	}
}

// cascadeOrSkip loads the production cascade, skipping when the model
// file is not present on the test machine.
func cascadeOrSkip(t *testing.T, opt *quality.Optimizer) *CascadeDetector {
	t.Helper()
	path := config.CascadePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("cascade file not available: %s", path)
	}
	d, err := NewCascade(path, opt)
	if err != nil {
		t.Fatalf("load cascade: %v", err)
	}
	return d
}

func TestCascadeDetector_EmptyFrame(t *testing.T) {
	opt := quality.NewOptimizer(30)
	d := cascadeOrSkip(t, opt)
	defer d.Close()

	// Quality tier has no frame skipping, so this hits the real pass.
	opt.AdaptiveControl(0)
	empty := gocv.NewMat()
	defer empty.Close()

	if got := d.Detect(empty); len(got) != 0 {
		t.Fatalf("empty frame produced %d detections", len(got))
	}
}

func TestCascadeDetector_BlankFrameNoFaces(t *testing.T) {
	opt := quality.NewOptimizer(30)
	d := cascadeOrSkip(t, opt)
	defer d.Close()

	opt.AdaptiveControl(0)
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	// No faces is an empty list, not an error.
	if got := d.Detect(img); len(got) != 0 {
		t.Fatalf("blank frame produced %d detections", len(got))
	}
}

func TestCascadeDetector_FrameSkipReusesLast(t *testing.T) {
	opt := quality.NewOptimizer(30)
	d := cascadeOrSkip(t, opt)
	defer d.Close()

	// Performance tier skips two frames between detection passes.
	opt.AdaptiveControl(time.Second)
	if opt.CurrentTier() != quality.TierPerformance {
		t.Fatalf("setup: tier %s", opt.CurrentTier())
	}

	// Seed the cached detections and reset the skip counter: the next
	// two calls must return the cached result without recomputing.
	sentinel := []track.Box{{X: 10, Y: 20, W: 30, H: 40}}
	d.mu.Lock()
	d.last = sentinel
	d.skipCounter = 0
	d.mu.Unlock()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	for i := 0; i < 2; i++ {
		got := d.Detect(img)
		if len(got) != 1 || got[0] != sentinel[0] {
			t.Fatalf("skip frame %d recomputed detections: %v", i, got)
		}
	}

	// Third call exhausts the skip budget and re-detects: the blank
	// frame replaces the sentinel with an empty result.
	if got := d.Detect(img); len(got) != 0 {
		t.Fatalf("expected fresh detection pass, got %v", got)
	}
}
