// Package track assigns stable identities to face detections across
// consecutive frames using greedy nearest-centroid matching with a
// disappearance timeout.
package track

import (
	"image"
	"math"
	"sort"
)

const (
	// DefaultMaxDisappeared is how many consecutive unmatched frames a
	// track survives before it is permanently deregistered.
	DefaultMaxDisappeared = 10

	// DefaultMatchDistance is the maximum centroid displacement in pixels
	// for a detection to be matched to an existing track.
	DefaultMatchDistance = 50.0
)

// Box is a face bounding box in frame-pixel coordinates.
type Box struct {
	X, Y, W, H int
}

// Centroid returns the center point of the box.
func (b Box) Centroid() image.Point {
	return image.Pt(b.X+b.W/2, b.Y+b.H/2)
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Tracker maps unordered per-frame detections to monotonically assigned
// track IDs. A deregistered ID is never reused; a reappearing face gets
// a fresh one. Not safe for concurrent use: each streaming session owns
// its own Tracker.
type Tracker struct {
	nextID         int
	objects        map[int]image.Point
	disappeared    map[int]int
	maxDisappeared int
	matchDistance  float64
}

// NewTracker creates a tracker with the default disappearance timeout
// and match distance.
func NewTracker() *Tracker {
	return NewTrackerWithParams(DefaultMaxDisappeared, DefaultMatchDistance)
}

// NewTrackerWithParams creates a tracker with explicit thresholds.
func NewTrackerWithParams(maxDisappeared int, matchDistance float64) *Tracker {
	return &Tracker{
		objects:        make(map[int]image.Point),
		disappeared:    make(map[int]int),
		maxDisappeared: maxDisappeared,
		matchDistance:  matchDistance,
	}
}

// register allocates a new ID for a centroid.
func (t *Tracker) register(c image.Point) int {
	id := t.nextID
	t.nextID++
	t.objects[id] = c
	t.disappeared[id] = 0
	return id
}

// deregister destroys a track. The ID is retired for good.
func (t *Tracker) deregister(id int) {
	delete(t.objects, id)
	delete(t.disappeared, id)
}

// Count returns the number of live tracks.
func (t *Tracker) Count() int {
	return len(t.objects)
}

// Update matches the frame's detections against existing tracks and
// returns the mapping of track ID to box for every matched or newly
// registered face.
func (t *Tracker) Update(detections []Box) map[int]Box {
	tracked := make(map[int]Box, len(detections))

	if len(detections) == 0 {
		// Nothing detected: age every track, expire the stale ones.
		for _, id := range t.ids() {
			t.disappeared[id]++
			if t.disappeared[id] > t.maxDisappeared {
				t.deregister(id)
			}
		}
		return tracked
	}

	centroids := make([]image.Point, len(detections))
	for i, box := range detections {
		centroids[i] = box.Centroid()
	}

	if len(t.objects) == 0 {
		for i, box := range detections {
			tracked[t.register(centroids[i])] = box
		}
		return tracked
	}

	ids := t.ids()

	// Pairwise distances between existing track centroids (rows) and new
	// detection centroids (cols).
	dist := make([][]float64, len(ids))
	for r, id := range ids {
		dist[r] = make([]float64, len(centroids))
		for c, cent := range centroids {
			dist[r][c] = euclidean(t.objects[id], cent)
		}
	}

	// Greedy assignment: visit rows in order of their closest candidate,
	// each row claiming its nearest unclaimed column.
	rows := make([]int, len(ids))
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rowMin(dist[rows[a]]) < rowMin(dist[rows[b]])
	})

	usedRows := make(map[int]bool, len(ids))
	usedCols := make(map[int]bool, len(centroids))

	for _, row := range rows {
		col := argmin(dist[row])
		if usedRows[row] || usedCols[col] {
			continue
		}
		if dist[row][col] > t.matchDistance {
			continue
		}

		id := ids[row]
		t.objects[id] = centroids[col]
		t.disappeared[id] = 0
		tracked[id] = detections[col]

		usedRows[row] = true
		usedCols[col] = true
	}

	// Unmatched tracks age toward expiry.
	for row, id := range ids {
		if usedRows[row] {
			continue
		}
		t.disappeared[id]++
		if t.disappeared[id] > t.maxDisappeared {
			t.deregister(id)
		}
	}

	// Unmatched detections become brand-new tracks.
	for col, box := range detections {
		if usedCols[col] {
			continue
		}
		tracked[t.register(centroids[col])] = box
	}

	return tracked
}

// ids returns the live track IDs in ascending order so that matrix rows
// have a stable ordering across calls.
func (t *Tracker) ids() []int {
	ids := make([]int, 0, len(t.objects))
	for id := range t.objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func euclidean(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func rowMin(row []float64) float64 {
	min := row[0]
	for _, v := range row[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func argmin(row []float64) int {
	best := 0
	for i, v := range row {
		if v < row[best] {
			best = i
		}
	}
	return best
}
