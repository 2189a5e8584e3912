package service

import (
	"context"
	"errors"

	"titlehub/internal/api/models"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/validation"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNameInUse    = errors.New("username already in use")
	ErrEmailInUse   = errors.New("email already in use")
)

// UserInput carries the fields an administrator sets when creating a user.
type UserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	Role      models.Role
}

// UserUpdate is a partial update of a user profile. Role is only honored on
// the admin path; the self-service path never passes it.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *models.Role
}

type UserService interface {
	List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error)
	Create(ctx context.Context, in UserInput) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateByUsername(ctx context.Context, username string, upd UserUpdate) (*models.User, error)
	DeleteByUsername(ctx context.Context, username string) error
	UpdateMe(ctx context.Context, actor *models.User, upd UserUpdate) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error) {
	return s.userRepo.List(ctx, search, page, pageSize)
}

// Create registers a user on behalf of an administrator.
func (s *userService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	var v validation.Violations
	validation.CheckUsername(&v, in.Username)
	if in.Email == "" {
		v.Add("email", "email is required")
	}
	if in.Role != "" && !in.Role.Valid() {
		v.Add("role", "role must be one of user, moderator, admin")
	}
	if !v.Empty() {
		return nil, v
	}

	if _, err := s.userRepo.FindByUsername(ctx, in.Username); err == nil {
		return nil, ErrNameInUse
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrNameInUse
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateByUsername is the admin update path and may change the role.
func (s *userService) UpdateByUsername(ctx context.Context, username string, upd UserUpdate) (*models.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			var v validation.Violations
			v.Add("role", "role must be one of user, moderator, admin")
			return nil, v
		}
		user.Role = *upd.Role
	}
	return s.apply(ctx, user, upd)
}

func (s *userService) DeleteByUsername(ctx context.Context, username string) error {
	if err := s.userRepo.DeleteByUsername(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UpdateMe is the self-service path. The role field is read-only here no
// matter what the payload carried.
func (s *userService) UpdateMe(ctx context.Context, actor *models.User, upd UserUpdate) (*models.User, error) {
	upd.Role = nil
	return s.apply(ctx, actor, upd)
}

func (s *userService) apply(ctx context.Context, user *models.User, upd UserUpdate) (*models.User, error) {
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		// email is the only unique column a profile update can change
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	return user, nil
}
