package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/Dias221467/Sales_CRM/internal/models"
	"github.com/Dias221467/Sales_CRM/internal/scheduler"
	"github.com/Dias221467/Sales_CRM/internal/services"
	jwtutil "github.com/Dias221467/Sales_CRM/pkg/jwt"
	"github.com/Dias221467/Sales_CRM/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockClientService struct{ mock.Mock }

func (m *mockClientService) CreateClient(ctx context.Context, ownerID primitive.ObjectID, client *models.Client) (*models.Client, error) {
	args := m.Called(ctx, ownerID, client)
	c, _ := args.Get(0).(*models.Client)
	return c, args.Error(1)
}

func (m *mockClientService) GetClient(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Client, error) {
	args := m.Called(ctx, ownerID, id)
	c, _ := args.Get(0).(*models.Client)
	return c, args.Error(1)
}

func (m *mockClientService) ListClients(ctx context.Context, ownerID primitive.ObjectID) ([]models.Client, error) {
	args := m.Called(ctx, ownerID)
	c, _ := args.Get(0).([]models.Client)
	return c, args.Error(1)
}

func (m *mockClientService) UpdateClient(ctx context.Context, ownerID, id primitive.ObjectID, update services.ClientUpdate) (*models.Client, error) {
	args := m.Called(ctx, ownerID, id, update)
	c, _ := args.Get(0).(*models.Client)
	return c, args.Error(1)
}

func (m *mockClientService) DeleteClient(ctx context.Context, ownerID, id primitive.ObjectID) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockClientService) LogInteraction(ctx context.Context, ownerID, clientID primitive.ObjectID, interaction *models.Interaction) (*models.Interaction, error) {
	args := m.Called(ctx, ownerID, clientID, interaction)
	i, _ := args.Get(0).(*models.Interaction)
	return i, args.Error(1)
}

func (m *mockClientService) GetInteractions(ctx context.Context, ownerID, clientID primitive.ObjectID, limit int) ([]models.Interaction, error) {
	args := m.Called(ctx, ownerID, clientID, limit)
	i, _ := args.Get(0).([]models.Interaction)
	return i, args.Error(1)
}

type mockReminders struct{ mock.Mock }

func (m *mockReminders) ListForSubject(ctx context.Context, subjectID primitive.ObjectID) ([]models.Reminder, error) {
	args := m.Called(ctx, subjectID)
	r, _ := args.Get(0).([]models.Reminder)
	return r, args.Error(1)
}

func (m *mockReminders) CountPending(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

type mockDevices struct{ mock.Mock }

func (m *mockDevices) Register(ctx context.Context, userID primitive.ObjectID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *mockDevices) Unregister(ctx context.Context, userID primitive.ObjectID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *mockDevices) Tokens(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	args := m.Called(ctx, userID)
	t, _ := args.Get(0).([]string)
	return t, args.Error(1)
}

type stubScheduler struct {
	status scheduler.Status
	ran    bool
	calls  int
}

func (s *stubScheduler) Status() scheduler.Status { return s.status }

func (s *stubScheduler) RunNow() bool {
	s.calls++
	return s.ran
}

// authedRequest builds a request for the given user with mux path variables.
func authedRequest(method, target, body string, userID primitive.ObjectID, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), &jwtutil.Claims{UserID: userID.Hex(), Role: "sales"}))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}
