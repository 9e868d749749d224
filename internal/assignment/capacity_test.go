package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
)

func TestLoadsZeroFillsMissingAgents(t *testing.T) {
	counted := uuid.New()
	silent := uuid.New()

	orders := newStubOrderRepo()
	orders.counts[counted] = 7

	tracker, err := NewTracker(orders)
	require.NoError(t, err)

	loads, err := tracker.Loads(context.Background(), []uuid.UUID{counted, silent})
	require.NoError(t, err)
	assert.Equal(t, 7, loads[counted])
	assert.Equal(t, 0, loads[silent])
	assert.Len(t, loads, 2)
}

func TestPoolKeepsNameOrderAndDropsFullAgents(t *testing.T) {
	full := models.Agent{ID: uuid.New(), Name: "amel", MaxOrders: 5}
	light := models.Agent{ID: uuid.New(), Name: "karim", MaxOrders: 10}
	heavy := models.Agent{ID: uuid.New(), Name: "lina", MaxOrders: 10}

	loads := map[uuid.UUID]int{
		full.ID:  5, // at ceiling
		light.ID: 2,
		heavy.ID: 8,
	}

	tracker, err := NewTracker(newStubOrderRepo())
	require.NoError(t, err)

	input := []models.Agent{heavy, full, light}
	pool := tracker.Pool(input, loads)

	// Name order regardless of load, so the rotation cursor sees the same
	// list between picks.
	require.Len(t, pool, 2)
	assert.Equal(t, "karim", pool[0].Name)
	assert.Equal(t, "lina", pool[1].Name)

	// Input order untouched.
	assert.Equal(t, "lina", input[0].Name)
}

func TestPoolEveryoneAtCeilingReturnsAll(t *testing.T) {
	a := models.Agent{ID: uuid.New(), Name: "karim", MaxOrders: 3}
	b := models.Agent{ID: uuid.New(), Name: "amel", MaxOrders: 3}
	loads := map[uuid.UUID]int{a.ID: 3, b.ID: 4}

	tracker, err := NewTracker(newStubOrderRepo())
	require.NoError(t, err)

	pool := tracker.Pool([]models.Agent{a, b}, loads)
	require.Len(t, pool, 2)
	assert.Equal(t, "amel", pool[0].Name)
	assert.Equal(t, "karim", pool[1].Name)
}

func TestTodayWindowIsLocalMidnightToMidnight(t *testing.T) {
	tracker, err := NewTracker(newStubOrderRepo())
	require.NoError(t, err)
	tracker.clock = func() time.Time {
		return time.Date(2026, 2, 10, 17, 45, 0, 0, time.UTC)
	}

	from, to := tracker.todayWindow()
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), to)
}
