package room

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg := newRegistry()
	a := &Participant{ID: uuid.New(), Name: "a"}
	b := &Participant{ID: uuid.New(), Name: "b"}
	c := &Participant{ID: uuid.New(), Name: "c"}
	reg.add(a)
	reg.add(b)
	reg.add(c)

	assert.Equal(t, []*Participant{a, b, c}, reg.all())

	removed, ok := reg.remove(b.ID)
	require.True(t, ok)
	assert.Same(t, b, removed)
	assert.Equal(t, []*Participant{a, c}, reg.all())
	assert.Equal(t, 2, reg.len())

	_, ok = reg.remove(b.ID)
	assert.False(t, ok)

	set := map[uuid.UUID]struct{}{c.ID: {}, b.ID: {}}
	assert.Equal(t, []*Participant{c}, reg.members(set))
}

func TestParticipantReset(t *testing.T) {
	p := &Participant{Progress: 100, Finished: true, Rank: 3, Elapsed: 5}
	p.reset()
	assert.Zero(t, p.Progress)
	assert.False(t, p.Finished)
	assert.Zero(t, p.Rank)
	assert.Zero(t, p.Elapsed)
}

func TestParagraphPool(t *testing.T) {
	_, err := NewParagraphPool(nil)
	assert.Error(t, err)

	pool, err := NewParagraphPool([]string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Len())

	pool.intn = func(n int) int { return n - 1 }
	assert.Equal(t, "three", pool.Pick())

	pool.intn = func(int) int { return 0 }
	assert.Equal(t, "one", pool.Pick())

	t.Run("default pool picks a member", func(t *testing.T) {
		pool, err := NewParagraphPool(DefaultParagraphs)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			assert.Contains(t, DefaultParagraphs, pool.Pick())
		}
	})
}
