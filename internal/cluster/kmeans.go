// Package cluster partitions feature rows into k groups with seeded k-means++.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// ErrInvalidConfiguration is returned before any work when k is out of range
// for the number of rows or there are no rows.
var ErrInvalidConfiguration = errors.New("invalid cluster configuration")

// Config holds k-means settings.
type Config struct {
	K             int
	Seed          int64
	MaxIterations int
	Tolerance     float64
	Restarts      int
}

// Assignment is the result of a clustering run. Labels are numbered in order of
// first appearance, so document 0 is always in cluster 0.
type Assignment struct {
	K          int         `json:"k"`
	Labels     []int       `json:"labels"`
	Centroids  [][]float64 `json:"-"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
}

// Sizes returns the number of rows in each cluster.
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.K)
	for _, l := range a.Labels {
		sizes[l]++
	}
	return sizes
}

// Members returns the row indices assigned to cluster c, ascending.
func (a *Assignment) Members(c int) []int {
	var out []int
	for i, l := range a.Labels {
		if l == c {
			out = append(out, i)
		}
	}
	return out
}

// KMeans runs Lloyd's algorithm from k-means++ seeds, keeping the restart
// with the lowest inertia.
type KMeans struct {
	cfg    Config
	logger *zap.Logger
}

// Option configures KMeans.
type Option func(*KMeans)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(km *KMeans) {
		if l != nil {
			km.logger = l
		}
	}
}

// New returns a KMeans. Unset iteration limits, tolerance and restarts take defaults.
func New(cfg Config, opts ...Option) *KMeans {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 300
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-4
	}
	if cfg.Restarts <= 0 {
		cfg.Restarts = 10
	}
	km := &KMeans{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(km)
	}
	return km
}

// Fit clusters rows into exactly K non-empty clusters. Identical rows, seed and
// config always give identical labels.
func (km *KMeans) Fit(ctx context.Context, rows [][]float64) (*Assignment, error) {
	n, k := len(rows), km.cfg.K
	switch {
	case n == 0:
		return nil, fmt.Errorf("%w: no rows to cluster", ErrInvalidConfiguration)
	case k <= 0:
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfiguration, k)
	case k > n:
		return nil, fmt.Errorf("%w: k=%d exceeds %d rows", ErrInvalidConfiguration, k, n)
	}
	dim := len(rows[0])
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrInvalidConfiguration, i, len(r), dim)
		}
	}

	rng := rand.New(rand.NewSource(uint64(km.cfg.Seed)))
	var best *Assignment
	for r := 0; r < km.cfg.Restarts; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := km.lloyd(ctx, rows, seedPlusPlus(rows, k, rng))
		if err != nil {
			return nil, err
		}
		km.logger.Debug("kmeans restart done",
			zap.Int("restart", r),
			zap.Int("iterations", a.Iterations),
			zap.Float64("inertia", a.Inertia),
		)
		if best == nil || a.Inertia < best.Inertia {
			best = a
		}
	}
	canonicalize(best)
	return best, nil
}

// seedPlusPlus picks k initial centroids, each chosen with probability
// proportional to its squared distance from the nearest centroid so far.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	chosen := make([]bool, n)
	first := rng.Intn(n)
	chosen[first] = true
	centroids := [][]float64{clone(rows[first])}

	dist := make([]float64, n)
	for i, r := range rows {
		dist[i] = sqDist(r, centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}
		next := -1
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i, d := range dist {
				if d == 0 {
					continue
				}
				cum += d
				next = i
				if cum >= target {
					break
				}
			}
		}
		if next < 0 {
			// Every row coincides with a centroid; take any unused row.
			free := make([]int, 0, n)
			for i := range rows {
				if !chosen[i] {
					free = append(free, i)
				}
			}
			next = free[rng.Intn(len(free))]
		}
		chosen[next] = true
		c := clone(rows[next])
		centroids = append(centroids, c)
		for i, r := range rows {
			if d := sqDist(r, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func (km *KMeans) lloyd(ctx context.Context, rows [][]float64, centroids [][]float64) (*Assignment, error) {
	k := len(centroids)
	labels := make([]int, len(rows))
	var iter int
	for iter = 1; iter <= km.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		assign(rows, centroids, labels)
		fillEmpty(rows, centroids, labels)
		next := means(rows, labels, k)
		var shift float64
		for c := range next {
			shift += sqDist(next[c], centroids[c])
		}
		centroids = next
		if shift <= km.cfg.Tolerance {
			break
		}
	}
	if iter > km.cfg.MaxIterations {
		iter = km.cfg.MaxIterations
	}

	var inertia float64
	for i, r := range rows {
		inertia += sqDist(r, centroids[labels[i]])
	}
	return &Assignment{K: k, Labels: labels, Centroids: centroids, Inertia: inertia, Iterations: iter}, nil
}

// assign labels each row with its nearest centroid; ties go to the lower index.
func assign(rows, centroids [][]float64, labels []int) {
	for i, r := range rows {
		best, bestD := 0, math.Inf(1)
		for c, cen := range centroids {
			if d := sqDist(r, cen); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
	}
}

// fillEmpty moves, into each empty cluster, the row farthest from its centroid
// among clusters with more than one member.
func fillEmpty(rows, centroids [][]float64, labels []int) {
	sizes := make([]int, len(centroids))
	for _, l := range labels {
		sizes[l]++
	}
	for c := range centroids {
		if sizes[c] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, r := range rows {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := sqDist(r, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			return
		}
		sizes[labels[far]]--
		labels[far] = c
		sizes[c]++
		centroids[c] = clone(rows[far])
	}
}

func means(rows [][]float64, labels []int, k int) [][]float64 {
	dim := len(rows[0])
	out := make([][]float64, k)
	counts := make([]int, k)
	for c := range out {
		out[c] = make([]float64, dim)
	}
	for i, r := range rows {
		c := labels[i]
		counts[c]++
		for d, x := range r {
			out[c][d] += x
		}
	}
	for c := range out {
		if counts[c] == 0 {
			continue
		}
		inv := 1 / float64(counts[c])
		for d := range out[c] {
			out[c][d] *= inv
		}
	}
	return out
}

// canonicalize renumbers labels in order of first appearance and reorders
// centroids to match.
func canonicalize(a *Assignment) {
	mapping := firstSeen(a.Labels)
	for i, l := range a.Labels {
		a.Labels[i] = mapping[l]
	}
	centroids := make([][]float64, len(a.Centroids))
	for old, cen := range a.Centroids {
		if nw, ok := mapping[old]; ok {
			centroids[nw] = cen
		}
	}
	a.Centroids = centroids
}

// Canonical returns labels renumbered in order of first appearance.
func Canonical(labels []int) []int {
	mapping := firstSeen(labels)
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = mapping[l]
	}
	return out
}

func firstSeen(labels []int) map[int]int {
	mapping := make(map[int]int)
	for _, l := range labels {
		if _, ok := mapping[l]; !ok {
			mapping[l] = len(mapping)
		}
	}
	return mapping
}

// Equivalent reports whether two labelings describe the same partition.
func Equivalent(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ca, cb := Canonical(a), Canonical(b)
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
