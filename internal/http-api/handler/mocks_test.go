package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/reminders"
	"bookshare/internal/session"
)

var (
	leader = models.Actor{
		UID:             "leader-1",
		Email:           "lead@north.org",
		Role:            models.RoleChapterLeader,
		ChapterLocation: "north",
		FullName:        "Lee Leader",
	}
	student = models.Actor{
		UID:             "student-1",
		Email:           "sam@north.org",
		Role:            models.RoleStudent,
		ChapterLocation: "north",
		FullName:        "Sam Reader",
		Phone:           "5551234567",
	}
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// as stands in for AuthMiddleware with a ready actor.
func as(a models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.KeyUserID, a.UID)
		c.Set(middleware.KeyEmail, a.Email)
		c.Set(middleware.KeyActor, a)
		c.Set(middleware.KeyRole, a.Role)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, time.Time, *models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(2) == nil {
		return "", time.Time{}, nil, args.Error(3)
	}
	return args.String(0), args.Get(1).(time.Time), args.Get(2).(*models.User), args.Error(3)
}

func (m *MockAuthService) CompleteProfile(ctx context.Context, uid string, in session.ProfileInput) (*models.Profile, error) {
	args := m.Called(ctx, uid, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (session.Session, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(session.Session), args.Error(1)
}

type MockLendingService struct {
	mock.Mock
}

func (m *MockLendingService) SubmitRequest(ctx context.Context, a models.Actor, bookID string) (*models.Request, error) {
	args := m.Called(ctx, a, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockLendingService) SubmitDonation(ctx context.Context, a models.Actor, in lifecycle.DonationInput) (*models.Donation, error) {
	args := m.Called(ctx, a, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Donation), args.Error(1)
}

func (m *MockLendingService) Approve(ctx context.Context, a models.Actor, ref lifecycle.Ref, sched lifecycle.Schedule) error {
	return m.Called(ctx, a, ref, sched).Error(0)
}

func (m *MockLendingService) Reject(ctx context.Context, a models.Actor, ref lifecycle.Ref) error {
	return m.Called(ctx, a, ref).Error(0)
}

func (m *MockLendingService) MarkReturned(ctx context.Context, a models.Actor, ref lifecycle.Ref) error {
	return m.Called(ctx, a, ref).Error(0)
}

func (m *MockLendingService) ClearResolved(ctx context.Context, a models.Actor) (lifecycle.ClearResult, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(lifecycle.ClearResult), args.Error(1)
}

func (m *MockLendingService) OwnRequests(ctx context.Context, a models.Actor) ([]models.Request, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.Request), args.Error(1)
}

func (m *MockLendingService) Reminders(ctx context.Context, a models.Actor) ([]reminders.Reminder, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]reminders.Reminder), args.Error(1)
}

func (m *MockLendingService) PickupNotices(ctx context.Context, a models.Actor) ([]reminders.Pickup, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]reminders.Pickup), args.Error(1)
}

func (m *MockLendingService) ChapterRequests(ctx context.Context, a models.Actor) ([]models.Request, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.Request), args.Error(1)
}

func (m *MockLendingService) Donations(ctx context.Context, a models.Actor) ([]models.Donation, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.Donation), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, a models.Actor) ([]models.Notification, int, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, a models.Actor, id string) error {
	return m.Called(ctx, a, id).Error(0)
}

func (m *MockNotificationService) MarkAllAsRead(ctx context.Context, a models.Actor) (int, error) {
	args := m.Called(ctx, a)
	return args.Int(0), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Snapshot(ctx context.Context, a models.Actor) (*service.Dashboard, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Dashboard), args.Error(1)
}

func (m *MockDashboardService) Watch(ctx context.Context, a models.Actor, onChange func(*service.Dashboard, error)) (func(), error) {
	args := m.Called(ctx, a, onChange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockCatalogService) Get(ctx context.Context, id string) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockCatalogService) ChapterBooks(ctx context.Context, a models.Actor) ([]models.Book, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockCatalogService) Update(ctx context.Context, a models.Actor, id string, upd service.BookUpdate) (*models.Book, error) {
	args := m.Called(ctx, a, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, a models.Actor, id string) error {
	return m.Called(ctx, a, id).Error(0)
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) Create(ctx context.Context, a models.Actor, in service.EventInput) (*models.Event, error) {
	args := m.Called(ctx, a, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventService) List(ctx context.Context, a models.Actor) ([]models.Event, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.Event), args.Error(1)
}

type MockOpportunityService struct {
	mock.Mock
}

func (m *MockOpportunityService) Create(ctx context.Context, a models.Actor, in service.OpportunityInput) (*models.DonationOpportunity, error) {
	args := m.Called(ctx, a, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DonationOpportunity), args.Error(1)
}

func (m *MockOpportunityService) List(ctx context.Context, a models.Actor) ([]models.DonationOpportunity, error) {
	args := m.Called(ctx, a)
	return args.Get(0).([]models.DonationOpportunity), args.Error(1)
}

func (m *MockOpportunityService) RSVP(ctx context.Context, a models.Actor, id string) (bool, error) {
	args := m.Called(ctx, a, id)
	return args.Bool(0), args.Error(1)
}
