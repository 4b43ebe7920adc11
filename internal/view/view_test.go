package view

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBegin_SupersedesPrevious(t *testing.T) {
	tr := NewTracker()

	g1 := tr.Begin("review")
	assert.True(t, tr.Current(g1))

	g2 := tr.Begin("review")
	assert.False(t, tr.Current(g1))
	assert.True(t, tr.Current(g2))
	assert.Equal(t, -1, g1.ID.Compare(g2.ID), "generations are monotonic")
}

func TestViewsAreIndependent(t *testing.T) {
	tr := NewTracker()

	review := tr.Begin("review")
	dash := tr.Begin("dashboard")
	tr.Begin("dashboard")

	assert.True(t, tr.Current(review))
	assert.False(t, tr.Current(dash))
}

func TestFinish(t *testing.T) {
	tr := NewTracker()

	g := tr.Begin("mcp/1")
	tr.Finish(g)
	assert.False(t, tr.Current(g))
	assert.Equal(t, 0, tr.Len())

	// Finishing a superseded generation keeps the newer one
	old := tr.Begin("review")
	newer := tr.Begin("review")
	tr.Finish(old)
	assert.True(t, tr.Current(newer))
	assert.Equal(t, 1, tr.Len())
}

func TestConcurrentBegin(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Begin("review")
		}()
	}
	wg.Wait()

	last := tr.Begin("review")
	assert.True(t, tr.Current(last))
}

func TestGenerationString(t *testing.T) {
	tr := NewTracker()
	g := tr.Begin("review")
	assert.Contains(t, g.String(), "review/")
}
