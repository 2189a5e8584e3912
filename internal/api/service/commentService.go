package service

import (
	"context"
	"errors"

	"titlehub/internal/api/models"
	"titlehub/internal/api/permissions"
	"titlehub/internal/api/repository"

	"gorm.io/gorm"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentService interface {
	Create(ctx context.Context, titleID, reviewID int64, author *models.User, text string) (*models.Comment, error)
	Update(ctx context.Context, titleID, reviewID, commentID int64, actor *models.User, text string) (*models.Comment, error)
	Delete(ctx context.Context, titleID, reviewID, commentID int64, actor *models.User) error
	Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error)
	List(ctx context.Context, titleID, reviewID int64, page, pageSize int) ([]models.Comment, int64, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	reviewRepo  repository.ReviewRepository
	titleRepo   repository.TitleRepository
}

func NewCommentService(commentRepo repository.CommentRepository, reviewRepo repository.ReviewRepository, titleRepo repository.TitleRepository) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		reviewRepo:  reviewRepo,
		titleRepo:   titleRepo,
	}
}

// parentReview resolves the review a comment operation is scoped to, failing
// fast when the title or review reference is unknown.
func (s *commentService) parentReview(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
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

func (s *commentService) Create(ctx context.Context, titleID, reviewID int64, author *models.User, text string) (*models.Comment, error) {
	review, err := s.parentReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReviewID: review.ID,
		AuthorID: author.ID,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, review.ID, comment.ID)
}

func (s *commentService) Update(ctx context.Context, titleID, reviewID, commentID int64, actor *models.User, text string) (*models.Comment, error) {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	if !permissions.Decide(actor, permissions.ActionUpdate, permissions.ResourceComment, comment.AuthorID) {
		return nil, ErrPermissionDenied
	}

	comment.Text = text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Delete(ctx context.Context, titleID, reviewID, commentID int64, actor *models.User) error {
	comment, err := s.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}

	if !permissions.Decide(actor, permissions.ActionDelete, permissions.ResourceComment, comment.AuthorID) {
		return ErrPermissionDenied
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	return nil
}

func (s *commentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error) {
	review, err := s.parentReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, review.ID, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

func (s *commentService) List(ctx context.Context, titleID, reviewID int64, page, pageSize int) ([]models.Comment, int64, error) {
	review, err := s.parentReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, 0, err
	}
	return s.commentRepo.GetByReview(ctx, review.ID, page, pageSize)
}
