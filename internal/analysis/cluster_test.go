package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/profiled/internal/profile"
)

func vectorized(entries map[string][]float64) map[string]VectorizedLabel {
	out := make(map[string]VectorizedLabel, len(entries))
	for text, vec := range entries {
		out[text] = VectorizedLabel{
			Label:  profile.DynamicLabel{Text: text, Confidence: 0.8, OccurrenceCount: 1},
			Vector: vec,
		}
	}
	return out
}

func TestClusterer_FewerThanTwoLabels(t *testing.T) {
	c := NewClusterer(DefaultConfig(), zap.NewNop())

	assert.Nil(t, c.Cluster(nil))
	assert.Nil(t, c.Cluster(vectorized(map[string][]float64{"#only": {0.5}})))
}

func TestClusterer_GroupsByDistance(t *testing.T) {
	c := NewClusterer(DefaultConfig(), zap.NewNop())

	clusters := c.Cluster(vectorized(map[string][]float64{
		"#debug_deep":  {0.10},
		"#debug_fast":  {0.20},
		"#writes_docs": {2.00},
	}))
	require.Len(t, clusters, 2)

	// The two nearby points share a cluster; the distant one is its
	// own singleton cluster.
	var pair, single profile.LabelCluster
	for _, cl := range clusters {
		if len(cl.Labels) == 2 {
			pair = cl
		} else {
			single = cl
		}
	}
	require.Len(t, pair.Labels, 2)
	assert.ElementsMatch(t, []string{"#debug_deep", "#debug_fast"}, pair.Labels)
	assert.InDelta(t, 0.15, pair.CenterPoint["x"], 1e-9)
	assert.InDelta(t, 0.05, pair.Radius, 1e-9)
	assert.Equal(t, 1.0, pair.Strength)

	require.Len(t, single.Labels, 1)
	assert.Equal(t, 0.1, single.Radius, "singleton radius is nominal")
	assert.InDelta(t, 2.0, single.CenterPoint["x"], 1e-9)
}

func TestClusterer_EveryLabelAssigned(t *testing.T) {
	c := NewClusterer(DefaultConfig(), zap.NewNop())

	input := vectorized(map[string][]float64{
		"#a": {0.0}, "#b": {0.4}, "#c": {0.9}, "#d": {3.0}, "#e": {3.1},
	})
	clusters := c.Cluster(input)

	seen := map[string]int{}
	for _, cl := range clusters {
		require.NotEmpty(t, cl.Labels)
		for _, label := range cl.Labels {
			seen[label]++
		}
	}
	// Partition: every label in exactly one cluster, none dropped.
	require.Len(t, seen, len(input))
	for label, count := range seen {
		assert.Equal(t, 1, count, label)
	}
}

func TestClusterer_ChainedNeighborsMerge(t *testing.T) {
	// 0.0 and 0.8 are farther apart than eps but both within eps of
	// 0.4, so density reachability joins all three.
	c := NewClusterer(DefaultConfig(), zap.NewNop())

	clusters := c.Cluster(vectorized(map[string][]float64{
		"#a": {0.0}, "#b": {0.4}, "#c": {0.8},
	}))
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Labels, 3)
}

func TestClusterer_MultiDimensionalVectors(t *testing.T) {
	c := NewClusterer(DefaultConfig(), zap.NewNop())

	clusters := c.Cluster(vectorized(map[string][]float64{
		"#a": {0.1, 0.1, 0.1, 0.1},
		"#b": {0.2, 0.1, 0.1, 0.1},
	}))
	require.Len(t, clusters, 1)

	cl := clusters[0]
	assert.InDelta(t, 0.15, cl.CenterPoint["x"], 1e-9)
	assert.InDelta(t, 0.1, cl.CenterPoint["y"], 1e-9)
	assert.InDelta(t, 0.1, cl.CenterPoint["z"], 1e-9)
}

func TestClusterTheme(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{
			name:   "most frequent token wins",
			labels: []string{"#debug_deep", "#debug_fast", "#writes_docs"},
			want:   "related to #debug",
		},
		{
			name:   "hashtag marker stripped",
			labels: []string{"#solo", "#solo"},
			want:   "related to #solo",
		},
		{
			name:   "no tokens",
			labels: []string{"#", ""},
			want:   "uncategorized cluster",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clusterTheme(tt.labels))
		})
	}
}
