package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"titlehub/internal/api/handler"
	"titlehub/internal/api/models"
	"titlehub/internal/api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- MOCK SERVICE ---

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error) {
	args := m.Called(ctx, search, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserService) Create(ctx context.Context, in service.UserInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateByUsername(ctx context.Context, username string, upd service.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, username, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) DeleteByUsername(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockUserService) UpdateMe(ctx context.Context, actor *models.User, upd service.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, actor, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func setupUserRouter(svc service.UserService, actor *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	if actor != nil {
		api.Use(func(c *gin.Context) {
			c.Set("currentUser", actor)
			c.Next()
		})
	}
	handler.NewUserHandler(svc).RegisterRoutes(api)
	return r
}

func TestUserMe_Anonymous(t *testing.T) {
	mockSvc := new(MockUserService)
	router := setupUserRouter(mockSvc, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserMe_ReturnsOwnProfile(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "reader42", Email: "r@example.com", Role: models.RoleUser}
	router := setupUserRouter(mockSvc, actor)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"reader42"`)
	mockSvc.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestUserMe_PatchDropsRole(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "reader42", Role: models.RoleUser}
	router := setupUserRouter(mockSvc, actor)

	bio := "updated"
	mockSvc.On("UpdateMe", mock.Anything, actor, service.UserUpdate{Bio: &bio}).
		Return(actor, nil).
		Run(func(args mock.Arguments) {
			upd := args.Get(2).(service.UserUpdate)
			assert.Nil(t, upd.Role)
		})

	// the role field in the payload has no effect on the self path
	payload, _ := json.Marshal(map[string]string{"bio": "updated", "role": "admin"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/api/v1/users/me", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestUserMe_PatchToTakenEmail(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "reader42", Role: models.RoleUser}
	router := setupUserRouter(mockSvc, actor)

	email := "taken@example.com"
	mockSvc.On("UpdateMe", mock.Anything, actor, service.UserUpdate{Email: &email}).
		Return(nil, service.ErrEmailInUse)

	payload, _ := json.Marshal(map[string]string{"email": "taken@example.com"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/api/v1/users/me", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserMe_DeleteRefused(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "reader42", Role: models.RoleUser}
	router := setupUserRouter(mockSvc, actor)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/users/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "DeleteByUsername", mock.Anything, mock.Anything)
}

func TestUserGet_NonAdminForbidden(t *testing.T) {
	mockSvc := new(MockUserService)
	actor := &models.User{ID: "u1", Username: "reader42", Role: models.RoleUser}
	router := setupUserRouter(mockSvc, actor)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users/someoneelse", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserList_Admin(t *testing.T) {
	mockSvc := new(MockUserService)
	admin := &models.User{ID: "a1", Username: "boss", Role: models.RoleAdmin}
	router := setupUserRouter(mockSvc, admin)

	users := []models.User{{ID: "u1", Username: "reader42"}}
	mockSvc.On("List", mock.Anything, "read", 1, 20).Return(users, int64(1), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/users?search=read", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"reader42"`)
}

func TestUserUpdate_AdminSetsRole(t *testing.T) {
	mockSvc := new(MockUserService)
	admin := &models.User{ID: "a1", Username: "boss", Role: models.RoleAdmin}
	router := setupUserRouter(mockSvc, admin)

	mockSvc.On("UpdateByUsername", mock.Anything, "reader42", mock.AnythingOfType("service.UserUpdate")).
		Return(&models.User{ID: "u1", Username: "reader42", Role: models.RoleModerator}, nil).
		Run(func(args mock.Arguments) {
			upd := args.Get(2).(service.UserUpdate)
			if assert.NotNil(t, upd.Role) {
				assert.Equal(t, models.RoleModerator, *upd.Role)
			}
		})

	payload, _ := json.Marshal(map[string]string{"role": "moderator"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/api/v1/users/reader42", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"moderator"`)
}
