package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/reach/internal/engine"
)

func TestFixedIDGenerator_InOrder(t *testing.T) {
	gen := NewFixedIDGenerator("session-1", "session-2")

	assert.Equal(t, "session-1", gen.Generate())
	assert.Equal(t, "session-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestFixedIDGenerator_EmptyDefault(t *testing.T) {
	gen := NewFixedIDGenerator()

	assert.Equal(t, "test-session-default", gen.Generate())
	assert.Equal(t, "test-session-default", gen.Generate())
}

func TestRecordingSink(t *testing.T) {
	s := NewRecordingSink()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Notify(engine.Event{Kind: engine.EventRegionDiscovered, Name: "Menu"})
		}()
	}
	wg.Wait()
	s.Notify(engine.Event{Kind: engine.EventItemCollected, Name: "Victory"})

	assert.Len(t, s.Events(), 11)
	assert.Equal(t, []string{"Victory"}, s.Names(engine.EventItemCollected))

	s.Reset()
	assert.Empty(t, s.Events())
}
