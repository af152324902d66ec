package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bookshare/internal/changefeed"
	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/store"
	"bookshare/internal/store/storetest"
)

var (
	leader = models.Actor{UID: "leader-1", Email: "lead@school.org", Role: models.RoleChapterLeader, ChapterLocation: "north"}
	student = models.Actor{
		UID:             "student-1",
		Email:           "sam@school.org",
		Role:            models.RoleStudent,
		ChapterLocation: "north",
		FullName:        "Sam Reader",
		Phone:           "5551234567",
	}
	schedule = lifecycle.Schedule{
		MeetingDate:         "2025-03-12",
		MeetingTime:         "10:30",
		MeetingLocationType: models.LocationInSchool,
		ReturnDate:          "2025-03-26",
	}
)

type fixture struct {
	ctx    context.Context
	clock  *storetest.Clock
	store  *store.Store
	feed   *changefeed.Local
	db     *gorm.DB
	engine *lifecycle.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := storetest.NewClock(time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))
	st, feed, db := storetest.OpenWithDB(t, store.WithClock(clock.Now))
	return &fixture{
		ctx:    context.Background(),
		clock:  clock,
		store:  st,
		feed:   feed,
		db:     db,
		engine: lifecycle.NewEngine(st),
	}
}

func (f *fixture) book(t *testing.T, chapter string) *models.Book {
	t.Helper()
	b := &models.Book{Title: "Chemistry Review", Author: "Ng", ChapterLocation: chapter, Status: models.BookAvailable, Timestamp: f.clock.Now()}
	require.NoError(t, f.store.Books().Create(f.ctx, b))
	return b
}

func (f *fixture) request(t *testing.T, r models.Request) *models.Request {
	t.Helper()
	if r.RequestedBy == "" {
		r.RequestedBy = student.UID
	}
	if r.ChapterLocation == "" {
		r.ChapterLocation = "north"
	}
	if r.BookTitle == "" {
		r.BookTitle = "Chemistry Review"
	}
	r.Timestamp = f.clock.Now()
	require.NoError(t, f.store.Requests().Create(f.ctx, &r))
	return &r
}

func (f *fixture) getRequest(t *testing.T, id string) *models.Request {
	t.Helper()
	r, err := f.store.Requests().Get(f.ctx, id)
	require.NoError(t, err)
	return r
}

func (f *fixture) getBook(t *testing.T, id string) *models.Book {
	t.Helper()
	b, err := f.store.Books().Get(f.ctx, id)
	require.NoError(t, err)
	return b
}

func TestSubmitRequest(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")

	req, err := f.engine.SubmitRequest(f.ctx, student, book.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, book.ID, req.BookID)
	assert.Equal(t, "Chemistry Review", req.BookTitle)
	assert.Equal(t, "north", req.ChapterLocation)
	assert.Equal(t, "Sam Reader", req.RequestedByName)
	assert.Equal(t, "5551234567", req.RequestedByPhone)

	// Pending requests do not reserve the copy.
	assert.Equal(t, models.BookAvailable, f.getBook(t, book.ID).Status)

	_, err = f.engine.SubmitRequest(f.ctx, student, book.ID)
	assert.NoError(t, err, "a second pending request for the same copy is allowed")
}

func TestSubmitRequest_Guards(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")

	_, err := f.engine.SubmitRequest(f.ctx, leader, book.ID)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	_, err = f.engine.SubmitRequest(f.ctx, models.Actor{}, book.ID)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	_, err = f.engine.SubmitRequest(f.ctx, student, "missing")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	_, err = f.engine.SubmitRequest(f.ctx, student, "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)
}

func TestSubmitDonation(t *testing.T) {
	f := newFixture(t)

	don, err := f.engine.SubmitDonation(f.ctx, student, lifecycle.DonationInput{
		BookTitle:   "  Algebra II ",
		ReturnDate:  "2025-06-01",
		UnusedTests: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Algebra II", don.BookTitle)
	assert.Equal(t, models.StatusPending, don.Status)
	assert.Equal(t, "Sam Reader", don.DonorName)
	assert.Equal(t, "5551234567", don.DonorPhone)
	assert.Equal(t, "north", don.ChapterLocation)
	assert.Equal(t, student.UID, don.DonatedBy)

	n, err := f.store.Books().Count(f.ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "books are only created on approval")
}

func TestSubmitDonation_Guards(t *testing.T) {
	f := newFixture(t)
	valid := lifecycle.DonationInput{BookTitle: "Algebra", ReturnDate: "2025-06-01"}

	_, err := f.engine.SubmitDonation(f.ctx, leader, valid)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	bad := valid
	bad.ReturnDate = ""
	_, err = f.engine.SubmitDonation(f.ctx, student, bad)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)

	bad = valid
	bad.ReturnDate = "06/01/2025"
	_, err = f.engine.SubmitDonation(f.ctx, student, bad)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)

	bad = valid
	bad.UnusedTests = -1
	_, err = f.engine.SubmitDonation(f.ctx, student, bad)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)

	bad = valid
	bad.BookTitle = " "
	_, err = f.engine.SubmitDonation(f.ctx, student, bad)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)
}

func TestApproveRequest_ReservesBook(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	req := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})

	require.NoError(t, f.engine.Approve(f.ctx, leader, lifecycle.RequestRef(req.ID), schedule))

	got := f.getRequest(t, req.ID)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "2025-03-12", got.MeetingDate)
	assert.Equal(t, "10:30", got.MeetingTime)
	assert.Equal(t, models.LocationInSchool, got.MeetingLocationType)
	assert.Equal(t, "2025-03-26", got.ReturnDate)

	b := f.getBook(t, book.ID)
	assert.Equal(t, models.BookBorrowed, b.Status)
	assert.Equal(t, student.UID, b.CurrentBorrower)
	assert.Equal(t, "2025-03-26", b.ReturnDate)
	require.NotNil(t, b.BorrowedDate)
	assert.WithinDuration(t, f.clock.Now(), *b.BorrowedDate, time.Millisecond)
}

func TestApproveDonation_CatalogsBook(t *testing.T) {
	f := newFixture(t)
	don, err := f.engine.SubmitDonation(f.ctx, student, lifecycle.DonationInput{
		BookTitle:   "Physics",
		Author:      "Halliday",
		ReturnDate:  "2025-06-01",
		UnusedTests: 2,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Approve(f.ctx, leader, lifecycle.DonationRef(don.ID), schedule))

	got, err := f.store.Donations().Get(f.ctx, don.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotEmpty(t, got.BookID)
	assert.NotNil(t, got.ReviewedAt)

	b := f.getBook(t, got.BookID)
	assert.Equal(t, "Physics", b.Title)
	assert.Equal(t, "Halliday", b.Author)
	assert.Equal(t, models.BookAvailable, b.Status)
	assert.Equal(t, 2, b.RemainingUnusedTests)
	assert.Equal(t, "north", b.ChapterLocation)
	assert.Equal(t, "Sam Reader", b.DonorName)
}

func TestApprove_Rejections(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	pending := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})
	rejected := f.request(t, models.Request{BookID: book.ID, Status: models.StatusRejected})
	elsewhere := f.request(t, models.Request{ChapterLocation: "south", Status: models.StatusPending})

	tests := []struct {
		name  string
		actor models.Actor
		ref   lifecycle.Ref
		sched lifecycle.Schedule
		want  error
	}{
		{"student", student, lifecycle.RequestRef(pending.ID), schedule, lifecycle.ErrUnauthorized},
		{"anonymous", models.Actor{}, lifecycle.RequestRef(pending.ID), schedule, lifecycle.ErrUnauthorized},
		{"nil ref", leader, nil, schedule, lifecycle.ErrInvalidInput},
		{"no return date", leader, lifecycle.RequestRef(pending.ID), lifecycle.Schedule{MeetingDate: "2025-03-12", MeetingTime: "10:30", MeetingLocationType: models.LocationInSchool}, lifecycle.ErrInvalidInput},
		{"bad meeting time", leader, lifecycle.RequestRef(pending.ID), lifecycle.Schedule{MeetingDate: "2025-03-12", MeetingTime: "10am", MeetingLocationType: models.LocationInSchool, ReturnDate: "2025-03-26"}, lifecycle.ErrInvalidInput},
		{"not pending", leader, lifecycle.RequestRef(rejected.ID), schedule, lifecycle.ErrInvalidState},
		{"missing", leader, lifecycle.RequestRef("nope"), schedule, lifecycle.ErrNotFound},
		{"other chapter", leader, lifecycle.RequestRef(elsewhere.ID), schedule, lifecycle.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.engine.Approve(f.ctx, tt.actor, tt.ref, tt.sched)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, models.StatusPending, f.getRequest(t, pending.ID).Status)
	assert.Equal(t, models.BookAvailable, f.getBook(t, book.ID).Status)
}

func TestApprove_BorrowedBookIsInvalidState(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	first := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})
	second := f.request(t, models.Request{BookID: book.ID, RequestedBy: "student-2", Status: models.StatusPending})

	require.NoError(t, f.engine.Approve(f.ctx, leader, lifecycle.RequestRef(first.ID), schedule))
	err := f.engine.Approve(f.ctx, leader, lifecycle.RequestRef(second.ID), schedule)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)

	assert.Equal(t, models.StatusPending, f.getRequest(t, second.ID).Status)
	assert.Equal(t, student.UID, f.getBook(t, book.ID).CurrentBorrower)
}

func TestApprove_IsAtomicWhenBookUpdateFails(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	req := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})
	sub, err := f.feed.Subscribe(f.ctx, store.CollectionRequests)
	require.NoError(t, err)
	defer sub.Close()

	storetest.FailUpdates(t, f.db, "books", errors.New("disk full"))

	err = f.engine.Approve(f.ctx, leader, lifecycle.RequestRef(req.ID), schedule)
	require.ErrorIs(t, err, lifecycle.ErrStoreUnavailable)

	got := f.getRequest(t, req.ID)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.ReturnDate)
	assert.Equal(t, models.BookAvailable, f.getBook(t, book.ID).Status)

	select {
	case ch := <-sub.C:
		t.Fatalf("rolled back approval published %s %s", ch.Op, ch.DocumentID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestApprove_DonationIsAtomicWhenDonationUpdateFails(t *testing.T) {
	f := newFixture(t)
	don, err := f.engine.SubmitDonation(f.ctx, student, lifecycle.DonationInput{BookTitle: "Physics", ReturnDate: "2025-06-01"})
	require.NoError(t, err)
	sub, err := f.feed.Subscribe(f.ctx, store.CollectionBooks)
	require.NoError(t, err)
	defer sub.Close()

	storetest.FailUpdates(t, f.db, "donations", errors.New("disk full"))

	err = f.engine.Approve(f.ctx, leader, lifecycle.DonationRef(don.ID), schedule)
	require.ErrorIs(t, err, lifecycle.ErrStoreUnavailable)

	n, err := f.store.Books().Count(f.ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "catalog copy must roll back with the donation")

	got, err := f.store.Donations().Get(f.ctx, don.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.BookID)

	select {
	case ch := <-sub.C:
		t.Fatalf("rolled back approval published %s %s", ch.Op, ch.DocumentID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubmitDonation_UsesDonorChapter(t *testing.T) {
	f := newFixture(t)
	southStudent := student
	southStudent.ChapterLocation = "south"

	don, err := f.engine.SubmitDonation(f.ctx, southStudent, lifecycle.DonationInput{BookTitle: "Bio", ReturnDate: "2025-06-01"})
	require.NoError(t, err)
	assert.Equal(t, "south", don.ChapterLocation)

	err = f.engine.Approve(f.ctx, leader, lifecycle.DonationRef(don.ID), schedule)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	req := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})
	don, err := f.engine.SubmitDonation(f.ctx, student, lifecycle.DonationInput{BookTitle: "Bio", ReturnDate: "2025-06-01"})
	require.NoError(t, err)

	require.NoError(t, f.engine.Reject(f.ctx, leader, lifecycle.RequestRef(req.ID)))
	require.NoError(t, f.engine.Reject(f.ctx, leader, lifecycle.DonationRef(don.ID)))

	assert.Equal(t, models.StatusRejected, f.getRequest(t, req.ID).Status)
	assert.Equal(t, models.BookAvailable, f.getBook(t, book.ID).Status)

	gotDon, err := f.store.Donations().Get(f.ctx, don.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, gotDon.Status)
	assert.Empty(t, gotDon.BookID)

	assert.ErrorIs(t, f.engine.Reject(f.ctx, leader, lifecycle.RequestRef(req.ID)), lifecycle.ErrInvalidState)
	assert.ErrorIs(t, f.engine.Reject(f.ctx, student, lifecycle.RequestRef(req.ID)), lifecycle.ErrUnauthorized)
}

func TestMarkReturned(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	req := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})
	require.NoError(t, f.engine.Approve(f.ctx, leader, lifecycle.RequestRef(req.ID), schedule))

	f.clock.Advance(72 * time.Hour)
	require.NoError(t, f.engine.MarkReturned(f.ctx, leader, lifecycle.RequestRef(req.ID)))

	got := f.getRequest(t, req.ID)
	assert.Equal(t, models.StatusReturned, got.Status)
	require.NotNil(t, got.ReturnedDate)
	assert.WithinDuration(t, f.clock.Now(), *got.ReturnedDate, time.Millisecond)

	b := f.getBook(t, book.ID)
	assert.Equal(t, models.BookAvailable, b.Status)
	assert.Empty(t, b.CurrentBorrower)
	assert.Nil(t, b.BorrowedDate)
	assert.Empty(t, b.ReturnDate)
}

func TestMarkReturned_OnlyFromApproved(t *testing.T) {
	f := newFixture(t)
	book := f.book(t, "north")
	// Borrowed state set by hand so a stray mutation would show.
	require.NoError(t, f.store.Books().Update(f.ctx, book.ID, store.Fields{"status": string(models.BookBorrowed), "current_borrower": "someone"}))
	req := f.request(t, models.Request{BookID: book.ID, Status: models.StatusPending})

	err := f.engine.MarkReturned(f.ctx, leader, lifecycle.RequestRef(req.ID))
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)

	assert.Equal(t, models.StatusPending, f.getRequest(t, req.ID).Status)
	b := f.getBook(t, book.ID)
	assert.Equal(t, models.BookBorrowed, b.Status)
	assert.Equal(t, "someone", b.CurrentBorrower)

	assert.ErrorIs(t, f.engine.MarkReturned(f.ctx, leader, lifecycle.DonationRef("d1")), lifecycle.ErrInvalidState)
	assert.ErrorIs(t, f.engine.MarkReturned(f.ctx, student, lifecycle.RequestRef(req.ID)), lifecycle.ErrUnauthorized)
}

func TestMarkReturned_ToleratesDeletedBook(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, models.Request{BookID: "gone", Status: models.StatusApproved, ReturnDate: "2025-03-20"})

	require.NoError(t, f.engine.MarkReturned(f.ctx, leader, lifecycle.RequestRef(req.ID)))
	assert.Equal(t, models.StatusReturned, f.getRequest(t, req.ID).Status)
}

func TestClearResolved_Leader(t *testing.T) {
	f := newFixture(t)
	pending := f.request(t, models.Request{Status: models.StatusPending})
	approved := f.request(t, models.Request{Status: models.StatusApproved})
	rejected := f.request(t, models.Request{Status: models.StatusRejected})
	returned := f.request(t, models.Request{Status: models.StatusReturned})
	otherChapter := f.request(t, models.Request{Status: models.StatusRejected, ChapterLocation: "south"})

	res, err := f.engine.ClearResolved(f.ctx, leader)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{approved.ID, rejected.ID, returned.ID}, res.Deleted)
	assert.Empty(t, res.Failed)

	left, err := f.store.Requests().Query(f.ctx, nil)
	require.NoError(t, err)
	var ids []string
	for _, r := range left {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{pending.ID, otherChapter.ID}, ids)
}

func TestClearResolved_StudentOnlyPastMeetings(t *testing.T) {
	f := newFixture(t)
	// Now is 2025-03-10 15:00 UTC.
	past := f.request(t, models.Request{Status: models.StatusApproved, MeetingDate: "2025-03-10", MeetingTime: "09:00"})
	returned := f.request(t, models.Request{Status: models.StatusReturned, MeetingDate: "2025-03-01", MeetingTime: "12:00"})
	future := f.request(t, models.Request{Status: models.StatusApproved, MeetingDate: "2025-03-10", MeetingTime: "16:00"})
	noMeeting := f.request(t, models.Request{Status: models.StatusApproved})
	rejected := f.request(t, models.Request{Status: models.StatusRejected, MeetingDate: "2025-03-01", MeetingTime: "12:00"})
	someoneElse := f.request(t, models.Request{RequestedBy: "student-2", Status: models.StatusApproved, MeetingDate: "2025-03-01", MeetingTime: "12:00"})

	res, err := f.engine.ClearResolved(f.ctx, student)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{past.ID, returned.ID}, res.Deleted)

	for _, id := range []string{future.ID, noMeeting.ID, rejected.ID, someoneElse.ID} {
		_, err := f.store.Requests().Get(f.ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestClearResolved_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.request(t, models.Request{Status: models.StatusRejected})
	}
	storetest.FailDeletes(t, f.db, "requests", 1, errors.New("locked"))

	res, err := f.engine.ClearResolved(f.ctx, leader)
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrStoreUnavailable)
	assert.Len(t, res.Deleted, 2)
	require.Len(t, res.Failed, 1)

	_, err = f.store.Requests().Get(f.ctx, res.Failed[0].ID)
	assert.NoError(t, err, "the failed request is still there")
}

func TestClearResolved_RequiresSignIn(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ClearResolved(f.ctx, models.Actor{})
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)
}

func TestParseRef(t *testing.T) {
	ref, err := lifecycle.ParseRef("donation", "d1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.DonationRef("d1"), ref)

	_, err = lifecycle.ParseRef("book", "b1")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)
	_, err = lifecycle.ParseRef("request", "")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)
}

func TestViews(t *testing.T) {
	f := newFixture(t)
	older := f.request(t, models.Request{Status: models.StatusApproved, ReturnDate: "2025-03-12", MeetingDate: "2025-03-11", MeetingTime: "08:15", MeetingLocationType: models.LocationOutsideSchool})
	f.clock.Advance(time.Minute)
	newer := f.request(t, models.Request{Status: models.StatusPending})
	f.request(t, models.Request{RequestedBy: "student-2", Status: models.StatusApproved, ReturnDate: "2025-03-11"})

	own, err := f.engine.OwnRequests(f.ctx, student)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, newer.ID, own[0].ID)
	assert.Equal(t, older.ID, own[1].ID)

	rem, err := f.engine.Reminders(f.ctx, student)
	require.NoError(t, err)
	require.Len(t, rem, 1)
	assert.Equal(t, older.ID, rem[0].RequestID)

	pickups, err := f.engine.PickupNotices(f.ctx, student)
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, older.ID, pickups[0].RequestID)
}
