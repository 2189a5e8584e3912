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

// MockReviewRepository mocks the ReviewRepository interface
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Update(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, titleID, id int64) (*models.Review, error) {
	args := m.Called(ctx, titleID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) GetByTitle(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error) {
	args := m.Called(ctx, titleID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Review), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewRepository) GetByTitleAndAuthor(ctx context.Context, titleID int64, authorID string) (*models.Review, error) {
	args := m.Called(ctx, titleID, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *MockReviewRepository) AverageScore(ctx context.Context, titleID int64) (float64, int64, error) {
	args := m.Called(ctx, titleID)
	return args.Get(0).(float64), args.Get(1).(int64), args.Error(2)
}

// MockTitleRepository mocks the TitleRepository interface
type MockTitleRepository struct {
	mock.Mock
}

func (m *MockTitleRepository) GetAll(ctx context.Context, page, pageSize int) ([]models.Title, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Title), args.Get(1).(int64), args.Error(2)
}

func (m *MockTitleRepository) GetByID(ctx context.Context, id int64) (*models.Title, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Title), args.Error(1)
}

func (m *MockTitleRepository) Create(ctx context.Context, t *models.Title) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTitleRepository) Update(ctx context.Context, t *models.Title) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTitleRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTitleRepository) ReplaceGenres(ctx context.Context, t *models.Title, genres []models.Genre) error {
	args := m.Called(ctx, t, genres)
	return args.Error(0)
}

func TestCreateReview_Success(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	author := &models.User{ID: "author-1", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1, Name: "Dune"}, nil)
	mockReviewRepo.On("GetByTitleAndAuthor", mock.Anything, int64(1), "author-1").Return(nil, gorm.ErrRecordNotFound)
	mockReviewRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Review")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Review).ID = 42
		}).Return(nil)
	mockReviewRepo.On("GetByID", mock.Anything, int64(1), int64(42)).
		Return(&models.Review{ID: 42, TitleID: 1, AuthorID: "author-1", Score: 8, Text: "good", Author: *author}, nil)

	review, err := svc.Create(context.Background(), 1, author, 8, "good")

	assert.NoError(t, err)
	assert.NotNil(t, review)
	assert.Equal(t, int64(42), review.ID)
	assert.Equal(t, 8, review.Score)
	mockReviewRepo.AssertExpectations(t)
	mockTitleRepo.AssertExpectations(t)
}

func TestCreateReview_SecondReviewRejected(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	author := &models.User{ID: "author-1", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByTitleAndAuthor", mock.Anything, int64(1), "author-1").
		Return(&models.Review{ID: 7, TitleID: 1, AuthorID: "author-1"}, nil)

	review, err := svc.Create(context.Background(), 1, author, 9, "again")

	assert.Nil(t, review)
	assert.ErrorIs(t, err, ErrReviewExists)
	mockReviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_LostInsertRace(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	author := &models.User{ID: "author-1", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByTitleAndAuthor", mock.Anything, int64(1), "author-1").Return(nil, gorm.ErrRecordNotFound)
	mockReviewRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Review")).
		Return(repository.ErrDuplicateKey)

	review, err := svc.Create(context.Background(), 1, author, 9, "again")

	assert.Nil(t, review)
	assert.ErrorIs(t, err, ErrReviewExists)
}

func TestCreateReview_ScoreOutOfRange(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	author := &models.User{ID: "author-1", Role: models.RoleUser}

	for _, score := range []int{0, 11} {
		review, err := svc.Create(context.Background(), 1, author, score, "text")

		assert.Nil(t, review)
		var v validation.Violations
		assert.ErrorAs(t, err, &v)
		assert.Contains(t, v, "score")
	}
	mockTitleRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateReview_TitleNotFound(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	author := &models.User{ID: "author-1", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, gorm.ErrRecordNotFound)

	review, err := svc.Create(context.Background(), 99, author, 5, "text")

	assert.Nil(t, review)
	assert.ErrorIs(t, err, ErrTitleNotFound)
}

func TestUpdateReview_NonAuthorDenied(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	other := &models.User{ID: "other", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByID", mock.Anything, int64(1), int64(42)).
		Return(&models.Review{ID: 42, TitleID: 1, AuthorID: "author-1", Score: 8}, nil)

	text := "hijacked"
	review, err := svc.Update(context.Background(), 1, 42, other, ReviewUpdate{Text: &text})

	assert.Nil(t, review)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	mockReviewRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateReview_ModeratorAllowed(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	moderator := &models.User{ID: "mod", Role: models.RoleModerator}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByID", mock.Anything, int64(1), int64(42)).
		Return(&models.Review{ID: 42, TitleID: 1, AuthorID: "author-1", Score: 8, Text: "old"}, nil)
	mockReviewRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Review")).Return(nil)

	score := 3
	review, err := svc.Update(context.Background(), 1, 42, moderator, ReviewUpdate{Score: &score})

	assert.NoError(t, err)
	assert.Equal(t, 3, review.Score)
	assert.Equal(t, "old", review.Text)
	mockReviewRepo.AssertExpectations(t)
}

func TestDeleteReview_OwnerAllowed(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	owner := &models.User{ID: "author-1", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByID", mock.Anything, int64(1), int64(42)).
		Return(&models.Review{ID: 42, TitleID: 1, AuthorID: "author-1"}, nil)
	mockReviewRepo.On("Delete", mock.Anything, int64(42)).Return(nil)

	err := svc.Delete(context.Background(), 1, 42, owner)

	assert.NoError(t, err)
	mockReviewRepo.AssertExpectations(t)
}

func TestDeleteReview_DropsScoreFromRating(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	owner := &models.User{ID: "author-1", Role: models.RoleUser}

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByID", mock.Anything, int64(1), int64(42)).
		Return(&models.Review{ID: 42, TitleID: 1, AuthorID: "author-1", Score: 9}, nil)
	// the repository contract removes the review and its comments in one
	// transaction, so the aggregate below no longer sees score 9
	mockReviewRepo.On("Delete", mock.Anything, int64(42)).Return(nil)
	mockReviewRepo.On("AverageScore", mock.Anything, int64(1)).Return(7.0, int64(2), nil)

	err := svc.Delete(context.Background(), 1, 42, owner)
	assert.NoError(t, err)
	mockReviewRepo.AssertCalled(t, "Delete", mock.Anything, int64(42))

	rating, err := svc.Rating(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 7, *rating)
}

func TestDeleteReview_AnonymousDenied(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	mockTitleRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Title{ID: 1}, nil)
	mockReviewRepo.On("GetByID", mock.Anything, int64(1), int64(42)).
		Return(&models.Review{ID: 42, TitleID: 1, AuthorID: "author-1"}, nil)

	err := svc.Delete(context.Background(), 1, 42, nil)

	assert.ErrorIs(t, err, ErrPermissionDenied)
	mockReviewRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRating_RoundsHalfUp(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	// scores 6, 8, 9 average to 7.67 and must round up to 8
	mockReviewRepo.On("AverageScore", mock.Anything, int64(1)).Return(float64(23)/3, int64(3), nil)

	rating, err := svc.Rating(context.Background(), 1)

	assert.NoError(t, err)
	assert.NotNil(t, rating)
	assert.Equal(t, 8, *rating)
}

func TestRating_ExactHalfRoundsUp(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	mockReviewRepo.On("AverageScore", mock.Anything, int64(1)).Return(7.5, int64(2), nil)

	rating, err := svc.Rating(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, 8, *rating)
}

func TestRating_NoReviews(t *testing.T) {
	mockReviewRepo := new(MockReviewRepository)
	mockTitleRepo := new(MockTitleRepository)
	svc := NewReviewService(mockReviewRepo, mockTitleRepo, nil)

	mockReviewRepo.On("AverageScore", mock.Anything, int64(1)).Return(0.0, int64(0), nil)

	rating, err := svc.Rating(context.Background(), 1)

	assert.NoError(t, err)
	assert.Nil(t, rating)
}
