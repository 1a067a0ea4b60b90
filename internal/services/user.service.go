package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/internal/storage"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already exist")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
)

const resetTokenBytes = 32

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	Create(ctx context.Context, u *model.User, role model.RoleType) (*model.User, error)
	UpdatePasswordByEmail(ctx context.Context, email, hash string) error
	CreatePasswordReset(ctx context.Context, userID, token string) (*model.PasswordReset, error)
	FindPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error)
	DeletePasswordReset(ctx context.Context, id string) error
	FindJoinedGroups(ctx context.Context, userID string) ([]model.ProfileGroup, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserService struct {
	userRepo UserRepository
	files    FileStore
	hashCost int
}

func NewUserService(userRepo UserRepository, files FileStore) *UserService {
	return &UserService{
		userRepo: userRepo,
		files:    files,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PhotoURL = s.files.URL(storage.UserPhoto, u.Photo)
	return u, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	u.PhotoURL = s.files.URL(storage.UserPhoto, u.Photo)
	return u, nil
}

func (s *UserService) IsEmailExist(ctx context.Context, email string) (bool, error) {
	n, err := s.userRepo.CountByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SignUp registers a new account under the USER role. The email check is a
// fast path only; the unique index decides races.
func (s *UserService) SignUp(ctx context.Context, req model.SignUpRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	exists, err := s.IsEmailExist(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.userRepo.Create(ctx, &model.User{
		Email:    req.Email,
		Password: string(hash),
		Name:     req.Name,
		Photo:    req.Photo,
	}, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	u.PhotoURL = s.files.URL(storage.UserPhoto, u.Photo)
	logger.Info("User signed up", "user_id", u.ID)
	return u, nil
}

// SignIn checks the credentials and returns the account. Issuing a session is
// left to the caller.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	u.PhotoURL = s.files.URL(storage.UserPhoto, u.Photo)
	return u, nil
}

// CreatePasswordReset issues a one-shot reset token for the account owning email.
func (s *UserService) CreatePasswordReset(ctx context.Context, email string) (*model.PasswordReset, error) {
	u, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}

	token, err := newResetToken()
	if err != nil {
		return nil, err
	}

	reset, err := s.userRepo.CreatePasswordReset(ctx, u.ID, token)
	if err != nil {
		return nil, err
	}
	reset.Email = u.Email
	return reset, nil
}

// ResetPassword consumes token and sets the new password of its account.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 5 {
		return invalid(errors.New("password must be at least 5 characters"))
	}

	reset, err := s.userRepo.FindPasswordReset(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.userRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdatePasswordByEmail(ctx, reset.Email, string(hash)); err != nil {
			return err
		}
		return s.userRepo.DeletePasswordReset(ctx, reset.ID)
	})
}

func (s *UserService) GetPersonalProfile(ctx context.Context, id string) (*model.Profile, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	groups, err := s.userRepo.FindJoinedGroups(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].PhotoURL = s.files.URL(storage.GroupPhoto, groups[i].Photo)
	}
	if groups == nil {
		groups = []model.ProfileGroup{}
	}

	return &model.Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		PhotoURL:  s.files.URL(storage.UserPhoto, u.Photo),
		CreatedAt: u.CreatedAt,
		Groups:    groups,
	}, nil
}

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
