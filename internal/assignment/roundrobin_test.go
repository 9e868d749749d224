package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

func TestSelectStartsAtZeroAndCycles(t *testing.T) {
	store := newFakeCursorStore()
	selector, err := NewSelector(store, time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	const n = 3
	var picks []int
	for i := 0; i < n*4; i++ {
		idx, err := selector.Select(ctx, "vitamine-c", n)
		require.NoError(t, err)
		picks = append(picks, idx)
	}

	for i, idx := range picks {
		assert.Equal(t, i%n, idx, "pick %d", i)
	}
}

func TestSelectCursorSurvivesNewSelector(t *testing.T) {
	store := newFakeCursorStore()
	ctx := context.Background()

	first, err := NewSelector(store, time.Second)
	require.NoError(t, err)
	idx, err := first.Select(ctx, "p", 4)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	// A fresh selector against the same store continues the rotation.
	second, err := NewSelector(store, time.Second)
	require.NoError(t, err)
	idx, err = second.Select(ctx, "p", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestSelectPartitionsRotateIndependently(t *testing.T) {
	store := newFakeCursorStore()
	selector, err := NewSelector(store, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	a1, err := selector.Select(ctx, "a", 2)
	require.NoError(t, err)
	b1, err := selector.Select(ctx, "b", 2)
	require.NoError(t, err)
	a2, err := selector.Select(ctx, "a", 2)
	require.NoError(t, err)

	assert.Equal(t, 0, a1)
	assert.Equal(t, 0, b1)
	assert.Equal(t, 1, a2)
}

func TestSelectWrapsWhenPoolShrinks(t *testing.T) {
	store := newFakeCursorStore()
	selector, err := NewSelector(store, time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := selector.Select(ctx, "p", 5)
		require.NoError(t, err)
	}
	// Cursor now 3; with only 2 candidates left the pick must stay in range.
	idx, err := selector.Select(ctx, "p", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestSelectEmptyCandidateList(t *testing.T) {
	selector, err := NewSelector(newFakeCursorStore(), time.Second)
	require.NoError(t, err)

	_, err = selector.Select(context.Background(), "p", 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoEligible))
}

func TestSelectToleratesCorruptCursor(t *testing.T) {
	store := newFakeCursorStore()
	require.NoError(t, store.Set(context.Background(), store.CursorKey("p"), "not-a-number", 0))

	selector, err := NewSelector(store, time.Second)
	require.NoError(t, err)

	idx, err := selector.Select(context.Background(), "p", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}
