package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/glift-app/glift-billing/internal/http/middlewarectx"
	"github.com/glift-app/glift-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SetupSubscription(ctx context.Context, user models.User) (models.SubscriptionChange, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.SubscriptionChange), args.Error(1)
}

func TestSetupHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := models.User{ID: "user-1", Email: "user@example.com"}

	tests := []struct {
		name           string
		user           *models.User
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   []string
	}{
		{
			name: "trial subscription created",
			user: &user,
			setupMock: func(m *MockService) {
				m.On("SetupSubscription", mock.Anything, user).Return(models.SubscriptionChange{
					Plan:           models.PlanPremium,
					Status:         models.StatusTrialing,
					SubscriptionID: "sub_1",
					ClientSecret:   "seti_secret",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`"client_secret":"seti_secret"`, `"status":"trialing"`},
		},
		{
			name:           "no user in context",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   []string{`"error":"unauthorized"`},
		},
		{
			name: "client secret unavailable",
			user: &user,
			setupMock: func(m *MockService) {
				m.On("SetupSubscription", mock.Anything, user).
					Return(models.SubscriptionChange{}, fmt.Errorf("upgrade: %w", models.ErrClientSecretUnavailable))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   []string{`"error":"client secret unavailable"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/setup-subscription", nil)
			if tt.user != nil {
				req = req.WithContext(middlewarectx.WithUser(req.Context(), *tt.user))
			}
			rr := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			for _, want := range tt.expectedBody {
				assert.Contains(t, rr.Body.String(), want)
			}
			svc.AssertExpectations(t)
		})
	}
}
