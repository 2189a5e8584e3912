package service

import (
	"context"
	"errors"

	"titlehub/internal/api/models"
	"titlehub/internal/api/permissions"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"
	"titlehub/internal/cache"

	"gorm.io/gorm"
)

var (
	ErrTitleNotFound    = errors.New("title not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrReviewExists     = errors.New("review for this title by this author already exists")
	ErrPermissionDenied = errors.New("permission denied")
)

// ReviewUpdate carries the mutable review fields for a partial update.
type ReviewUpdate struct {
	Text  *string
	Score *int
}

type ReviewService interface {
	Create(ctx context.Context, titleID int64, author *models.User, score int, text string) (*models.Review, error)
	Update(ctx context.Context, titleID, reviewID int64, actor *models.User, upd ReviewUpdate) (*models.Review, error)
	Delete(ctx context.Context, titleID, reviewID int64, actor *models.User) error
	Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	List(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error)
	Rating(ctx context.Context, titleID int64) (*int, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	titleRepo  repository.TitleRepository
	ratings    *cache.RatingCache
}

func NewReviewService(reviewRepo repository.ReviewRepository, titleRepo repository.TitleRepository, ratings *cache.RatingCache) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		titleRepo:  titleRepo,
		ratings:    ratings,
	}
}

// Create persists a new review. At most one review per (author, title) pair
// may exist: a second attempt fails with ErrReviewExists instead of silently
// overwriting, and the unique index resolves concurrent attempts.
func (s *reviewService) Create(ctx context.Context, titleID int64, author *models.User, score int, text string) (*models.Review, error) {
	var v validation.Violations
	validation.CheckScore(&v, score)
	if !v.Empty() {
		return nil, v
	}

	if _, err := s.titleRepo.GetByID(ctx, titleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, err
	}

	if _, err := s.reviewRepo.GetByTitleAndAuthor(ctx, titleID, author.ID); err == nil {
		return nil, ErrReviewExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: author.ID,
		Text:     text,
		Score:    score,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrReviewExists
		}
		return nil, err
	}

	s.ratings.Invalidate(ctx, titleID)

	return s.reviewRepo.GetByID(ctx, titleID, review.ID)
}

// Update applies a partial update. Only admins, moderators and the author may
// mutate a review; the score is re-validated on every update.
func (s *reviewService) Update(ctx context.Context, titleID, reviewID int64, actor *models.User, upd ReviewUpdate) (*models.Review, error) {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	if !permissions.Decide(actor, permissions.ActionUpdate, permissions.ResourceReview, review.AuthorID) {
		return nil, ErrPermissionDenied
	}

	if upd.Score != nil {
		var v validation.Violations
		validation.CheckScore(&v, *upd.Score)
		if !v.Empty() {
			return nil, v
		}
		review.Score = *upd.Score
	}
	if upd.Text != nil {
		review.Text = *upd.Text
	}

	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}

	s.ratings.Invalidate(ctx, titleID)
	return review, nil
}

// Delete removes the review and, by cascade, all of its comments.
func (s *reviewService) Delete(ctx context.Context, titleID, reviewID int64, actor *models.User) error {
	review, err := s.Get(ctx, titleID, reviewID)
	if err != nil {
		return err
	}

	if !permissions.Decide(actor, permissions.ActionDelete, permissions.ResourceReview, review.AuthorID) {
		return ErrPermissionDenied
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	s.ratings.Invalidate(ctx, titleID)
	return nil
}

func (s *reviewService) Get(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	if _, err := s.titleRepo.GetByID(ctx, titleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, err
	}

	review, err := s.reviewRepo.GetByID(ctx, titleID, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

func (s *reviewService) List(ctx context.Context, titleID int64, page, pageSize int) ([]models.Review, int64, error) {
	if _, err := s.titleRepo.GetByID(ctx, titleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrTitleNotFound
		}
		return nil, 0, err
	}
	return s.reviewRepo.GetByTitle(ctx, titleID, page, pageSize)
}

// Rating exposes the derived title rating to the handlers.
func (s *reviewService) Rating(ctx context.Context, titleID int64) (*int, error) {
	return titleRating(ctx, s.reviewRepo, s.ratings, titleID)
}
