package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityScoreCapsAt40PointPenalty(t *testing.T) {
	e := EntityScore("fn1", 3, CategoryComplexity)
	assert.InDelta(t, 85.0, e.Health, 1e-9)

	capped := EntityScore("fn2", 20, CategoryComplexity)
	assert.InDelta(t, 60.0, capped.Health, 1e-9)
}

func TestComputeFileHealthAveragesEntities(t *testing.T) {
	entities := []EntityHealth{
		EntityScore("a", 0, CategoryOther),
		EntityScore("b", 4, CategoryComplexity),
	}
	f := ComputeFileHealth("file.go", entities)
	assert.InDelta(t, 90.0, f.Health, 1e-9)
	assert.Equal(t, 2, f.EntityCount)
}

func TestComputeFileHealthEmptyIsPerfect(t *testing.T) {
	f := ComputeFileHealth("empty.go", nil)
	assert.Equal(t, 100.0, f.Health)
}

func TestComputeDirectoryHealthWeightsByEntityCount(t *testing.T) {
	bigFile := ComputeFileHealth("big.go", []EntityHealth{
		EntityScore("a", 8, CategoryComplexity),
		EntityScore("b", 8, CategoryComplexity),
	})
	smallFile := ComputeFileHealth("small.go", []EntityHealth{
		EntityScore("c", 0, CategoryOther),
	})

	dir := ComputeDirectoryHealth("pkg", []FileHealth{bigFile, smallFile}, nil)
	assert.Less(t, dir.Health, 90.0)
	assert.Equal(t, 3, dir.EntityCount)
}

func TestHotspotsSortsAscendingByHealthAndCapsTopN(t *testing.T) {
	entities := []EntityHealth{
		EntityScore("healthy", 0, CategoryOther),
		EntityScore("bad", 10, CategoryComplexity),
		EntityScore("medium", 4, CategoryDuplication),
	}
	hotspots := Hotspots(entities, 2)
	assert.Len(t, hotspots, 2)
	assert.Equal(t, "bad", hotspots[0].EntityID)
	assert.NotEmpty(t, hotspots[0].RecommendedAction)
}

func TestDepthBucketsGroupsAndComputesStats(t *testing.T) {
	depths := []int{0, 1, 1, 2}
	healths := []float64{100, 80, 90, 70}
	buckets := DepthBuckets(depths, healths)
	assert.Len(t, buckets, 3)
	assert.Equal(t, 1, buckets[1].Depth)
	assert.InDelta(t, 85.0, buckets[1].Mean, 1e-9)
}
