package service

import (
	"context"
	"errors"

	"titlehub/internal/api/models"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"

	"gorm.io/gorm"
)

type GenreService interface {
	List(ctx context.Context, page, pageSize int) ([]models.Genre, int64, error)
	Create(ctx context.Context, name, slug string) (*models.Genre, error)
	Delete(ctx context.Context, slug string) error
}

type genreService struct {
	repo *repository.GenreRepo
}

func NewGenreService(repo *repository.GenreRepo) GenreService {
	return &genreService{repo: repo}
}

func (s *genreService) List(ctx context.Context, page, pageSize int) ([]models.Genre, int64, error) {
	return s.repo.GetAll(ctx, page, pageSize)
}

func (s *genreService) Create(ctx context.Context, name, slug string) (*models.Genre, error) {
	var v validation.Violations
	if name == "" {
		v.Add("name", "name is required")
	}
	validation.CheckSlug(&v, "slug", slug)
	if !v.Empty() {
		return nil, v
	}

	g := &models.Genre{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return g, nil
}

func (s *genreService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGenreNotFound
		}
		return err
	}
	return nil
}
