package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayflow/domain"
	"dayflow/srv"
)

func testEvent(userId, id string, start time.Time) domain.TimelineEvent {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.TimelineEvent{
		Id:              id,
		UserId:          userId,
		Title:           "Standup",
		Category:        "meeting",
		Start:           start,
		End:             start.Add(15 * time.Minute),
		DurationMinutes: 15,
		Source:          "user",
		Created:         now,
		Updated:         now,
	}
}

func TestPersistAndGetEvent(t *testing.T) {
	t.Parallel()
	storage := NewTestSqliteStorage(t, "test")
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	event := testEvent("user1", "evt_1", start)
	require.NoError(t, storage.PersistEvent(ctx, event))

	got, err := storage.GetEvent(ctx, "user1", "evt_1")
	require.NoError(t, err)
	assert.Equal(t, event.Title, got.Title)
	assert.True(t, got.Start.Equal(event.Start))
	assert.True(t, got.End.Equal(event.End))
	assert.Equal(t, 15, got.DurationMinutes)
}

func TestGetEvent_NotFound(t *testing.T) {
	t.Parallel()
	storage := NewTestSqliteStorage(t, "test")

	_, err := storage.GetEvent(context.Background(), "user1", "missing")
	assert.ErrorIs(t, err, srv.ErrNotFound)
}

func TestPersistEvent_Overwrite(t *testing.T) {
	t.Parallel()
	storage := NewTestSqliteStorage(t, "test")
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	event := testEvent("user1", "evt_1", start)
	require.NoError(t, storage.PersistEvent(ctx, event))

	event.Title = "Standup (moved)"
	event.ModifiedBy = domain.ModifiedByProactive
	require.NoError(t, storage.PersistEvent(ctx, event))

	got, err := storage.GetEvent(ctx, "user1", "evt_1")
	require.NoError(t, err)
	assert.Equal(t, "Standup (moved)", got.Title)
	assert.Equal(t, domain.ModifiedByProactive, got.ModifiedBy)
}

func TestGetEventsInWindow(t *testing.T) {
	t.Parallel()
	storage := NewTestSqliteStorage(t, "test")
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, storage.PersistEvent(ctx, testEvent("user1", "evt_before", base.Add(-48*time.Hour))))
	require.NoError(t, storage.PersistEvent(ctx, testEvent("user1", "evt_b", base.Add(2*time.Hour))))
	require.NoError(t, storage.PersistEvent(ctx, testEvent("user1", "evt_a", base)))
	require.NoError(t, storage.PersistEvent(ctx, testEvent("user1", "evt_c", base.Add(300*time.Hour))))
	require.NoError(t, storage.PersistEvent(ctx, testEvent("user1", "evt_after", base.Add(400*time.Hour))))
	require.NoError(t, storage.PersistEvent(ctx, testEvent("user2", "evt_other", base)))

	// the 14-day window ends at base+336h, so evt_after stays out
	events, err := storage.GetEventsInWindow(ctx, "user1", base, base.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "evt_a", events[0].Id)
	assert.Equal(t, "evt_b", events[1].Id)
	assert.Equal(t, "evt_c", events[2].Id)
}

func TestDeleteEvent(t *testing.T) {
	t.Parallel()
	storage := NewTestSqliteStorage(t, "test")
	ctx := context.Background()

	event := testEvent("user1", "evt_1", time.Now().UTC())
	require.NoError(t, storage.PersistEvent(ctx, event))
	require.NoError(t, storage.DeleteEvent(ctx, "user1", "evt_1"))

	_, err := storage.GetEvent(ctx, "user1", "evt_1")
	assert.ErrorIs(t, err, srv.ErrNotFound)

	assert.ErrorIs(t, storage.DeleteEvent(ctx, "user1", "evt_1"), srv.ErrNotFound)
}
