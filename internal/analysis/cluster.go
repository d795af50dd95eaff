package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/profile"
)

// Clusterer groups vectorized labels into theme clusters with DBSCAN.
type Clusterer struct {
	eps       float64
	minPoints int
	logger    *zap.Logger
}

// NewClusterer creates a clusterer with the given density parameters.
func NewClusterer(cfg Config, logger *zap.Logger) *Clusterer {
	if logger == nil {
		logger = zap.NewNop()
	}
	eps := cfg.Eps
	if eps <= 0 {
		eps = 0.5
	}
	minPoints := cfg.MinPoints
	if minPoints < 1 {
		minPoints = 1
	}
	return &Clusterer{eps: eps, minPoints: minPoints, logger: logger}
}

// Cluster groups the vectorized labels. Fewer than two labels yield an
// empty result since clustering is undefined below two points. With
// the default minPoints of 1 every label lands in some cluster; none
// are discarded as noise.
func (c *Clusterer) Cluster(vectorized map[string]VectorizedLabel) []profile.LabelCluster {
	if len(vectorized) < 2 {
		return nil
	}

	// Stable point order so cluster IDs are reproducible for the same
	// input set.
	texts := make([]string, 0, len(vectorized))
	for text := range vectorized {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = vectorized[text].Vector
	}

	assignments := dbscan(vectors, c.eps, c.minPoints)

	c.logger.Info("clustering labels",
		zap.Int("labels", len(texts)),
		zap.Float64("eps", c.eps),
		zap.Int("min_points", c.minPoints))

	groups := make(map[int][]string)
	for i, cluster := range assignments {
		groups[cluster] = append(groups[cluster], texts[i])
	}

	groupIDs := make([]int, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Ints(groupIDs)

	now := time.Now().UTC()
	var result []profile.LabelCluster
	for _, id := range groupIDs {
		members := groups[id]
		cluster, err := c.buildCluster(id, members, vectorized, now)
		if err != nil {
			c.logger.Error("creating cluster failed",
				zap.Int("cluster", id),
				zap.Error(err))
			continue
		}
		result = append(result, cluster)
	}
	return result
}

// buildCluster computes centroid, radius and theme for one group.
func (c *Clusterer) buildCluster(id int, members []string, vectorized map[string]VectorizedLabel, now time.Time) (profile.LabelCluster, error) {
	if len(members) == 0 {
		return profile.LabelCluster{}, fmt.Errorf("cluster %d has no members", id)
	}

	dim := len(vectorized[members[0]].Vector)
	if dim == 0 {
		return profile.LabelCluster{}, fmt.Errorf("cluster %d has empty vectors", id)
	}

	centroid := make([]float64, dim)
	for _, text := range members {
		for d, v := range vectorized[text].Vector {
			centroid[d] += v
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(members))
	}

	// Radius is the farthest member distance from the centroid; a
	// singleton has no deviation so it gets a nominal 0.1.
	radius := 0.1
	if len(members) > 1 {
		radius = 0
		for _, text := range members {
			if d := euclidean(centroid, vectorized[text].Vector); d > radius {
				radius = d
			}
		}
	}

	centerPoint := map[string]float64{"x": centroid[0], "y": 0.0, "z": 0.0}
	if dim > 1 {
		centerPoint["y"] = centroid[1]
	}
	if dim > 2 {
		centerPoint["z"] = centroid[2]
	}

	return profile.LabelCluster{
		ClusterID:   fmt.Sprintf("cluster_%d", id),
		Theme:       clusterTheme(members),
		Labels:      members,
		Strength:    1.0,
		CenterPoint: centerPoint,
		Radius:      radius,
		LastUpdated: now,
	}, nil
}

// clusterTheme names a cluster after the most frequent
// underscore-delimited token across its member labels.
func clusterTheme(labels []string) string {
	counts := make(map[string]int)
	var order []string
	for _, label := range labels {
		for _, word := range strings.Split(strings.ReplaceAll(label, "#", ""), "_") {
			if word == "" {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}
	if len(order) == 0 {
		return "uncategorized cluster"
	}

	best := order[0]
	for _, word := range order[1:] {
		if counts[word] > counts[best] {
			best = word
		}
	}
	return fmt.Sprintf("related to #%s", best)
}

// dbscan assigns every point a cluster index. With minPoints=1 the
// result is the connected components of the eps-neighborhood graph.
func dbscan(points [][]float64, eps float64, minPoints int) []int {
	const unvisited = -1

	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = unvisited
	}

	next := 0
	for i := range points {
		if assignments[i] != unvisited {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPoints {
			// Noise. Kept at -1; unreachable when minPoints is 1
			// since a point neighbors itself.
			continue
		}

		cluster := next
		next++
		assignments[i] = cluster

		// Expand the cluster over density-reachable points.
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]

			if assignments[p] != unvisited {
				continue
			}
			assignments[p] = cluster

			pNeighbors := regionQuery(points, p, eps)
			if len(pNeighbors) >= minPoints {
				queue = append(queue, pNeighbors...)
			}
		}
	}
	return assignments
}

// regionQuery returns indices of all points within eps of point i,
// including i itself.
func regionQuery(points [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for d := range a {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
