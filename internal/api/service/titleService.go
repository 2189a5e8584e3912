package service

import (
	"context"
	"errors"
	"time"

	"titlehub/internal/api/models"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"
	"titlehub/internal/cache"

	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrGenreNotFound    = errors.New("genre not found")
)

// TitleInput carries the writable title fields. Category and genres arrive as
// slugs, the way the API addresses them.
type TitleInput struct {
	Name        string
	Year        int
	Description *string
	Category    *string
	Genres      []string
}

// TitleUpdate is a partial TitleInput for PATCH.
type TitleUpdate struct {
	Name        *string
	Year        *int
	Description *string
	Category    *string
	Genres      *[]string
}

type TitleService interface {
	Create(ctx context.Context, in TitleInput) (*models.Title, error)
	Update(ctx context.Context, id int64, upd TitleUpdate) (*models.Title, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Title, *int, error)
	List(ctx context.Context, page, pageSize int) ([]models.Title, map[int64]*int, int64, error)
}

type titleService struct {
	titleRepo  repository.TitleRepository
	catRepo    *repository.CategoryRepo
	genreRepo  *repository.GenreRepo
	reviewRepo repository.ReviewRepository
	ratings    *cache.RatingCache
}

func NewTitleService(
	titleRepo repository.TitleRepository,
	catRepo *repository.CategoryRepo,
	genreRepo *repository.GenreRepo,
	reviewRepo repository.ReviewRepository,
	ratings *cache.RatingCache,
) TitleService {
	return &titleService{
		titleRepo:  titleRepo,
		catRepo:    catRepo,
		genreRepo:  genreRepo,
		reviewRepo: reviewRepo,
		ratings:    ratings,
	}
}

// resolveGenres maps genre slugs to rows, failing with ErrGenreNotFound when
// any slug is unknown.
func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]models.Genre, error) {
	genres, err := s.genreRepo.GetBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}
	if len(genres) != len(uniqueStrings(slugs)) {
		return nil, ErrGenreNotFound
	}
	return genres, nil
}

func (s *titleService) resolveCategory(ctx context.Context, slug string) (*models.Category, error) {
	cat, err := s.catRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return cat, nil
}

func (s *titleService) Create(ctx context.Context, in TitleInput) (*models.Title, error) {
	var v validation.Violations
	if in.Name == "" {
		v.Add("name", "name is required")
	}
	validation.CheckYear(&v, in.Year, time.Now())
	if !v.Empty() {
		return nil, v
	}

	title := &models.Title{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
	}

	if in.Category != nil {
		cat, err := s.resolveCategory(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		title.CategoryID = &cat.ID
		title.Category = cat
	}

	genres, err := s.resolveGenres(ctx, in.Genres)
	if err != nil {
		return nil, err
	}
	title.Genres = genres

	if err := s.titleRepo.Create(ctx, title); err != nil {
		return nil, err
	}
	return s.titleRepo.GetByID(ctx, title.ID)
}

func (s *titleService) Update(ctx context.Context, id int64, upd TitleUpdate) (*models.Title, error) {
	title, err := s.titleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, err
	}

	if upd.Year != nil {
		var v validation.Violations
		validation.CheckYear(&v, *upd.Year, time.Now())
		if !v.Empty() {
			return nil, v
		}
		title.Year = *upd.Year
	}
	if upd.Name != nil {
		title.Name = *upd.Name
	}
	if upd.Description != nil {
		title.Description = upd.Description
	}
	if upd.Category != nil {
		cat, err := s.resolveCategory(ctx, *upd.Category)
		if err != nil {
			return nil, err
		}
		title.CategoryID = &cat.ID
		title.Category = cat
	}

	if upd.Genres != nil {
		genres, err := s.resolveGenres(ctx, *upd.Genres)
		if err != nil {
			return nil, err
		}
		if err := s.titleRepo.ReplaceGenres(ctx, title, genres); err != nil {
			return nil, err
		}
	}

	if err := s.titleRepo.Update(ctx, title); err != nil {
		return nil, err
	}
	return s.titleRepo.GetByID(ctx, id)
}

func (s *titleService) Delete(ctx context.Context, id int64) error {
	if err := s.titleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTitleNotFound
		}
		return err
	}
	s.ratings.Invalidate(ctx, id)
	return nil
}

// Get returns the title together with its derived rating.
func (s *titleService) Get(ctx context.Context, id int64) (*models.Title, *int, error) {
	title, err := s.titleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTitleNotFound
		}
		return nil, nil, err
	}

	rating, err := titleRating(ctx, s.reviewRepo, s.ratings, id)
	if err != nil {
		return nil, nil, err
	}
	return title, rating, nil
}

// List returns a page of titles plus each title's derived rating.
func (s *titleService) List(ctx context.Context, page, pageSize int) ([]models.Title, map[int64]*int, int64, error) {
	titles, total, err := s.titleRepo.GetAll(ctx, page, pageSize)
	if err != nil {
		return nil, nil, 0, err
	}

	ratings := make(map[int64]*int, len(titles))
	for _, t := range titles {
		r, err := titleRating(ctx, s.reviewRepo, s.ratings, t.ID)
		if err != nil {
			return nil, nil, 0, err
		}
		ratings[t.ID] = r
	}
	return titles, ratings, total, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
