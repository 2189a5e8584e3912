package service

import (
	"context"
	"errors"

	"titlehub/internal/api/models"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"

	"gorm.io/gorm"
)

var ErrSlugExists = errors.New("slug already in use")

type CategoryService interface {
	List(ctx context.Context, page, pageSize int) ([]models.Category, int64, error)
	Create(ctx context.Context, name, slug string) (*models.Category, error)
	Delete(ctx context.Context, slug string) error
}

type categoryService struct {
	repo *repository.CategoryRepo
}

func NewCategoryService(repo *repository.CategoryRepo) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context, page, pageSize int) ([]models.Category, int64, error) {
	return s.repo.GetAll(ctx, page, pageSize)
}

func (s *categoryService) Create(ctx context.Context, name, slug string) (*models.Category, error) {
	var v validation.Violations
	if name == "" {
		v.Add("name", "name is required")
	}
	validation.CheckSlug(&v, "slug", slug)
	if !v.Empty() {
		return nil, v
	}

	c := &models.Category{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}
