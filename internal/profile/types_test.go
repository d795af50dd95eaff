package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.5))
	assert.Equal(t, 1.0, ClampConfidence(1.5))
	assert.Equal(t, 0.7, ClampConfidence(0.7))
}

func TestPattern_Normalize(t *testing.T) {
	p := Pattern{Name: "x", Confidence: 2.0}
	p.Normalize()
	assert.Equal(t, 1.0, p.Confidence)
	assert.Equal(t, DefaultCategory, p.Category)

	p = Pattern{Name: "x", Category: "custom", Confidence: 0.5}
	p.Normalize()
	assert.Equal(t, "custom", p.Category, "existing categories are preserved")
}

func TestPattern_Validate(t *testing.T) {
	p := Pattern{Category: "c", Confidence: 0.5}
	assert.ErrorIs(t, p.Validate(), ErrEmptyPatternName)

	p.Name = "named"
	assert.NoError(t, p.Validate())
}

func TestDynamicLabel_MergeObservation(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	l := DynamicLabel{
		Text:            "#t",
		Confidence:      0.6,
		Context:         []string{"a"},
		FirstSeen:       first,
		LastSeen:        first,
		OccurrenceCount: 1,
		RelatedLabels:   []string{"#x"},
	}
	l.MergeObservation(DynamicLabel{
		Text:          "#t",
		Confidence:    0.9,
		Context:       []string{"b"},
		RelatedLabels: []string{"#x", "#y"},
	}, now)

	assert.Equal(t, 2, l.OccurrenceCount)
	assert.Equal(t, 0.9, l.Confidence, "confidence keeps the max")
	assert.Equal(t, []string{"a", "b"}, l.Context)
	assert.Equal(t, []string{"#x", "#y"}, l.RelatedLabels)
	assert.Equal(t, first, l.FirstSeen, "first seen is preserved")
	assert.Equal(t, now, l.LastSeen)

	// A weaker repeat observation does not lower confidence.
	l.MergeObservation(DynamicLabel{Text: "#t", Confidence: 0.2}, now)
	assert.Equal(t, 0.9, l.Confidence)
	assert.Equal(t, 3, l.OccurrenceCount)
}

func TestLabelCluster_Validate(t *testing.T) {
	c := LabelCluster{ClusterID: "cluster_0"}
	assert.ErrorIs(t, c.Validate(), ErrEmptyCluster)

	c.Labels = []string{"#a"}
	c.Radius = -1
	require.Error(t, c.Validate())

	c.Radius = 0.1
	assert.NoError(t, c.Validate())
}

func TestMergeReport_AllFailed(t *testing.T) {
	r := &MergeReport{}
	assert.False(t, r.AllFailed(), "nothing attempted is not a total failure")

	r.Patterns.Failed = 2
	r.Labels.Failed = 1
	assert.True(t, r.AllFailed())

	r.Labels.Merged = 1
	assert.False(t, r.AllFailed())
}

func TestIsValidRole(t *testing.T) {
	for _, role := range ValidRoles {
		assert.True(t, IsValidRole(role), role)
	}
	assert.False(t, IsValidRole("admin"))
	assert.False(t, IsValidRole(""))
}
