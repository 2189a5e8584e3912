package service

import (
	"context"
	"testing"

	"titlehub/internal/api/models"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func TestCreateUser_Success(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	mockUserRepo.On("FindByUsername", mock.Anything, "newbie").Return(nil, gorm.ErrRecordNotFound)
	mockUserRepo.On("FindByEmail", mock.Anything, "newbie@example.com").Return(nil, gorm.ErrRecordNotFound)
	mockUserRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	user, err := svc.Create(context.Background(), UserInput{
		Username: "newbie",
		Email:    "newbie@example.com",
		Role:     models.RoleModerator,
	})

	assert.NoError(t, err)
	assert.Equal(t, "newbie", user.Username)
	assert.Equal(t, models.RoleModerator, user.Role)
	mockUserRepo.AssertExpectations(t)
}

func TestCreateUser_ReservedUsername(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	user, err := svc.Create(context.Background(), UserInput{Username: "me", Email: "me@example.com"})

	assert.Nil(t, user)
	var v validation.Violations
	assert.ErrorAs(t, err, &v)
	mockUserRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestCreateUser_InvalidRole(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	user, err := svc.Create(context.Background(), UserInput{
		Username: "newbie",
		Email:    "newbie@example.com",
		Role:     models.Role("overlord"),
	})

	assert.Nil(t, user)
	var v validation.Violations
	assert.ErrorAs(t, err, &v)
	assert.Contains(t, v, "role")
}

func TestCreateUser_UsernameTaken(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	mockUserRepo.On("FindByUsername", mock.Anything, "taken").
		Return(&models.User{ID: "u1", Username: "taken"}, nil)

	user, err := svc.Create(context.Background(), UserInput{Username: "taken", Email: "t@example.com"})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrNameInUse)
}

func TestUpdateByUsername_ChangesRole(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	existing := &models.User{ID: "u1", Username: "reader42", Role: models.RoleUser}
	mockUserRepo.On("FindByUsername", mock.Anything, "reader42").Return(existing, nil)
	mockUserRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	role := models.RoleModerator
	user, err := svc.UpdateByUsername(context.Background(), "reader42", UserUpdate{Role: &role})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleModerator, user.Role)
}

func TestUpdateMe_RoleIsReadOnly(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	actor := &models.User{ID: "u1", Username: "reader42", Role: models.RoleUser}
	mockUserRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	role := models.RoleAdmin
	bio := "still just a reader"
	user, err := svc.UpdateMe(context.Background(), actor, UserUpdate{Role: &role, Bio: &bio})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, "still just a reader", user.Bio)
}

func TestUpdateMe_EmailTakenIsConflict(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	actor := &models.User{ID: "u1", Username: "reader42", Email: "old@example.com", Role: models.RoleUser}
	mockUserRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.User")).
		Return(repository.ErrDuplicateKey)

	email := "taken@example.com"
	user, err := svc.UpdateMe(context.Background(), actor, UserUpdate{Email: &email})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestDeleteByUsername_NotFound(t *testing.T) {
	mockUserRepo := new(MockUserRepository)
	svc := NewUserService(mockUserRepo)

	mockUserRepo.On("DeleteByUsername", mock.Anything, "ghost").Return(gorm.ErrRecordNotFound)

	err := svc.DeleteByUsername(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrUserNotFound)
}
