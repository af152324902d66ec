package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshare/internal/changefeed"
	"bookshare/internal/models"
	"bookshare/internal/store"
	"bookshare/internal/store/storetest"
)

func newRequest(chapter string, status models.Status) *models.Request {
	return &models.Request{
		BookTitle:       "Calculus",
		RequestedBy:     "student-1",
		ChapterLocation: chapter,
		Status:          status,
		Timestamp:       time.Now().UTC(),
	}
}

func nextChange(t *testing.T, sub *changefeed.Subscription) changefeed.Change {
	t.Helper()
	select {
	case ch := <-sub.C:
		return ch
	case <-time.After(time.Second):
		t.Fatal("no change published")
		return changefeed.Change{}
	}
}

func TestCollection_CreateGetAssignsID(t *testing.T) {
	st, _ := storetest.Open(t)
	ctx := context.Background()

	req := newRequest("north", models.StatusPending)
	require.NoError(t, st.Requests().Create(ctx, req))
	require.NotEmpty(t, req.ID)

	got, err := st.Requests().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Calculus", got.BookTitle)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestCollection_GetMissingIsNotFound(t *testing.T) {
	st, _ := storetest.Open(t)

	_, err := st.Books().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = st.Books().Update(context.Background(), "missing", store.Fields{"title": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = st.Books().Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCollection_QueryFiltersAndOrders(t *testing.T) {
	st, _ := storetest.Open(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []models.Status{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		req := newRequest("north", status)
		req.Timestamp = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.Requests().Create(ctx, req))
	}
	require.NoError(t, st.Requests().Create(ctx, newRequest("south", models.StatusApproved)))

	north, err := st.Requests().Query(ctx, store.Filter{"chapter_location": "north"}, "timestamp DESC")
	require.NoError(t, err)
	require.Len(t, north, 3)
	assert.Equal(t, models.StatusRejected, north[0].Status)
	assert.Equal(t, models.StatusPending, north[2].Status)

	resolved, err := st.Requests().Query(ctx, store.Filter{
		"chapter_location": "north",
		"status":           []string{string(models.StatusApproved), string(models.StatusRejected)},
	})
	require.NoError(t, err)
	assert.Len(t, resolved, 2)

	n, err := st.Requests().Count(ctx, store.Filter{"status": string(models.StatusApproved)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCollection_UpdatePublishesBeforeAndAfter(t *testing.T) {
	st, feed := storetest.Open(t)
	ctx := context.Background()

	req := newRequest("north", models.StatusPending)
	require.NoError(t, st.Requests().Create(ctx, req))

	sub, err := feed.Subscribe(ctx, store.CollectionRequests)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, st.Requests().Update(ctx, req.ID, store.Fields{"status": models.StatusApproved}))

	ch := nextChange(t, sub)
	assert.Equal(t, changefeed.OpUpdate, ch.Op)
	assert.Equal(t, req.ID, ch.DocumentID)

	var before, after models.Request
	ok, err := ch.DecodeBefore(&before)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = ch.DecodeAfter(&after)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, before.Status)
	assert.Equal(t, models.StatusApproved, after.Status)
}

func TestCollection_UpdateIfHonoursCondition(t *testing.T) {
	st, _ := storetest.Open(t)
	ctx := context.Background()

	req := newRequest("north", models.StatusApproved)
	require.NoError(t, st.Requests().Create(ctx, req))

	now := time.Now().UTC()
	applied, err := st.Requests().UpdateIf(ctx, req.ID, "approved_at IS NULL", nil, store.Fields{"approved_at": now})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = st.Requests().UpdateIf(ctx, req.ID, "approved_at IS NULL", nil, store.Fields{"approved_at": now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := st.Requests().Get(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ApprovedAt)
	assert.WithinDuration(t, now, *got.ApprovedAt, time.Millisecond)
}

func TestTransaction_RollsBackAndPublishesNothingOnError(t *testing.T) {
	st, feed := storetest.Open(t)
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, store.CollectionBooks)
	require.NoError(t, err)
	defer sub.Close()

	boom := errors.New("boom")
	err = st.Transaction(ctx, func(tx *store.Store) error {
		book := &models.Book{Title: "Physics", ChapterLocation: "north", Status: models.BookAvailable}
		if err := tx.Books().Create(ctx, book); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	books, err := st.Books().Query(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, books)

	select {
	case ch := <-sub.C:
		t.Fatalf("unexpected change %+v", ch)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransaction_CommitsBatchTogether(t *testing.T) {
	st, feed := storetest.Open(t)
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx, store.CollectionNotifications)
	require.NoError(t, err)
	defer sub.Close()

	err = st.Transaction(ctx, func(tx *store.Store) error {
		for _, user := range []string{"u1", "u2", "u3"} {
			n := &models.Notification{UserID: user, Type: models.NotificationOverdue, CreatedAt: tx.Now()}
			if err := tx.Notifications().Create(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, changefeed.OpCreate, nextChange(t, sub).Op)
	}
}

func TestAddVolunteer_IsSetUnion(t *testing.T) {
	st, _ := storetest.Open(t)
	ctx := context.Background()

	opp := &models.DonationOpportunity{Title: "Book drive", ChapterLocation: "north", NeededItems: []string{"SAT prep"}}
	require.NoError(t, st.Opportunities().Create(ctx, opp))

	added, err := st.AddVolunteer(ctx, opp.ID, models.Volunteer{UID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = st.AddVolunteer(ctx, opp.ID, models.Volunteer{UID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	assert.False(t, added)

	added, err = st.AddVolunteer(ctx, opp.ID, models.Volunteer{UID: "u2", Email: "u2@example.com"})
	require.NoError(t, err)
	assert.True(t, added)

	got, err := st.Opportunities().Preload("Volunteers").Get(ctx, opp.ID)
	require.NoError(t, err)
	assert.Len(t, got.Volunteers, 2)
	assert.Equal(t, []string{"SAT prep"}, got.NeededItems)

	_, err = st.AddVolunteer(ctx, "missing", models.Volunteer{UID: "u1"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWatch_DeliversSnapshotsUntilCancelled(t *testing.T) {
	st, feed := storetest.Open(t)
	ctx := context.Background()

	snapshots := make(chan []models.Request, 8)
	cancel, err := store.Watch(ctx, feed, st.Requests(), store.Filter{"chapter_location": "north"}, []string{"timestamp DESC"},
		func(reqs []models.Request, err error) {
			assert.NoError(t, err)
			snapshots <- reqs
		})
	require.NoError(t, err)

	first := <-snapshots
	assert.Empty(t, first)

	require.NoError(t, st.Requests().Create(ctx, newRequest("north", models.StatusPending)))

	var latest []models.Request
	require.Eventually(t, func() bool {
		select {
		case latest = <-snapshots:
		default:
		}
		return len(latest) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, feed.Count())
	cancel()
	assert.Equal(t, 0, feed.Count())
}
