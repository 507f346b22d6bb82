// Package mask applies privacy effects to tracked face regions,
// memoizing the expensive per-region computation keyed by track
// identity, region size, effect, and intensity.
package mask

import (
	"image"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"gocv.io/x/gocv"

	"github.com/playalter/maskstream/pkg/debug"
	"github.com/playalter/maskstream/pkg/quality"
	"github.com/playalter/maskstream/pkg/track"
)

// DefaultCacheSize bounds the number of memoized face regions.
const DefaultCacheSize = 50

// cacheKey identifies one memoized region. A face that moves without
// resizing keeps hitting the same entry; a resize produces a new key.
type cacheKey struct {
	trackID   int
	w, h      int
	maskType  Type
	intensity float64
}

// Applicator applies the configured effect to each tracked face region
// on a copy of the input frame. One Applicator per streaming session;
// cached regions are only meaningful within one client's face set.
type Applicator struct {
	optimizer *quality.Optimizer
	cache     *lru.Cache[cacheKey, gocv.Mat]
}

// NewApplicator creates an applicator with the default cache capacity.
func NewApplicator(opt *quality.Optimizer) *Applicator {
	return NewApplicatorWithCacheSize(opt, DefaultCacheSize)
}

// NewApplicatorWithCacheSize creates an applicator with an explicit
// cache capacity.
func NewApplicatorWithCacheSize(opt *quality.Optimizer, cacheSize int) *Applicator {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	// Evicted regions own native memory and must be released.
	cache, _ := lru.NewWithEvict[cacheKey, gocv.Mat](cacheSize, func(_ cacheKey, m gocv.Mat) {
		m.Close()
	})
	return &Applicator{
		optimizer: opt,
		cache:     cache,
	}
}

// Apply masks every tracked face on a copy of img and returns it. The
// second return reports whether a new frame was allocated: when faces
// is empty or the mask is off, the input is returned untouched and the
// caller must not Close it twice.
func (a *Applicator) Apply(img gocv.Mat, faces map[int]track.Box, cfg Config) (gocv.Mat, bool) {
	cfg = cfg.Normalized()
	if len(faces) == 0 || cfg.Type == TypeOff {
		return img, false
	}

	settings := a.optimizer.CurrentSettings()
	result := img.Clone()

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())

	for _, id := range sortedIDs(faces) {
		rect := faces[id].Rect().Intersect(bounds)
		if rect.Dx() < 2 || rect.Dy() < 2 {
			continue
		}

		key := cacheKey{
			trackID:   id,
			w:         rect.Dx(),
			h:         rect.Dy(),
			maskType:  cfg.Type,
			intensity: cfg.Intensity,
		}

		region := result.Region(rect)

		if cached, ok := a.cache.Get(key); ok {
			if cached.Cols() == rect.Dx() && cached.Rows() == rect.Dy() {
				cached.CopyTo(&region)
				region.Close()
				continue
			}
			// Stale shape: discard and recompute fresh.
			a.cache.Remove(key)
			debug.FrameLog("mask: stale cache entry for track %d\n", id)
		}

		masked := a.render(region, cfg, settings)
		masked.CopyTo(&region)
		region.Close()

		// The cache takes ownership of masked; eviction closes it.
		a.cache.Add(key, masked)
	}

	return result, true
}

// render computes the effect for one face region, returning a fresh Mat
// the caller (or the cache) owns. The region view is cloned first so
// filter borders never read pixels outside the box.
func (a *Applicator) render(view gocv.Mat, cfg Config, settings quality.Settings) gocv.Mat {
	region := view.Clone()
	defer region.Close()

	w := region.Cols()
	h := region.Rows()

	switch cfg.Type {
	case TypeBlur:
		kernel := settings.BlurKernel
		if kernel%2 == 0 {
			kernel++
		}
		out := gocv.NewMat()
		gocv.GaussianBlur(region, &out, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)
		return out

	case TypePixelate:
		cell := min(w, h) / 20
		if cell < 4 {
			cell = 4
		}
		cols := w / cell
		rows := h / cell
		if cols < 1 {
			cols = 1
		}
		if rows < 1 {
			rows = 1
		}
		tmp := gocv.NewMat()
		defer tmp.Close()
		gocv.Resize(region, &tmp, image.Pt(cols, rows), 0, 0, gocv.InterpolationLinear)
		out := gocv.NewMat()
		gocv.Resize(tmp, &out, image.Pt(w, h), 0, 0, gocv.InterpolationNearestNeighbor)
		return out

	case TypeColorBlock:
		fill := cfg.fill()
		overlay := gocv.NewMatWithSizeFromScalar(
			gocv.NewScalar(float64(fill[0]), float64(fill[1]), float64(fill[2]), 0),
			h, w, gocv.MatTypeCV8UC3,
		)
		defer overlay.Close()
		out := gocv.NewMat()
		gocv.AddWeighted(region, 1-cfg.Intensity, overlay, cfg.Intensity, 0, &out)
		return out
	}

	return region.Clone()
}

// CacheLen returns the number of live cache entries.
func (a *Applicator) CacheLen() int {
	return a.cache.Len()
}

// Close releases every cached region.
func (a *Applicator) Close() {
	a.cache.Purge()
}

func sortedIDs(faces map[int]track.Box) []int {
	ids := make([]int, 0, len(faces))
	for id := range faces {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
