package users

import (
	"context"
	"net/mail"
	"strings"

	"github.com/Domenick1991/flightorders/internal/auth"
	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/pkg/errors"
)

const minPasswordLen = 8

type UserUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, auth.TokenPair, error)
	Login(ctx context.Context, username, password string) (*domain.User, auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Token, error)
	Self(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, name domain.NameQuery) ([]domain.User, error)
}

type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
	// IsStaff is set by the admin CLI only.
	IsStaff bool
}

func (in RegisterInput) validate() error {
	required := []struct{ field, value string }{
		{"username", in.Username},
		{"email", in.Email},
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"password", in.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.NewValidationError(r.field, "this field is required")
		}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.NewValidationError("email", "enter a valid email address")
	}
	if len(in.Password) < minPasswordLen {
		return domain.NewValidationError("password", "must be at least 8 characters")
	}
	if in.Password != in.ConfirmPassword {
		return domain.NewValidationError("confirm_password", "passwords do not match")
	}
	return nil
}

type UserService struct {
	users      repository.UserRepository
	issuer     *auth.Issuer
	bcryptCost int
}

func NewUserService(users repository.UserRepository, issuer *auth.Issuer, bcryptCost int) *UserService {
	return &UserService{users: users, issuer: issuer, bcryptCost: bcryptCost}
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, auth.TokenPair, error) {
	if err := input.validate(); err != nil {
		return nil, auth.TokenPair{}, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}

	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		IsStaff:      input.IsStaff,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, auth.TokenPair{}, err
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return user, pair, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, auth.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, auth.TokenPair{}, domain.ErrInvalidCredentials
		}
		return nil, auth.TokenPair{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, auth.TokenPair{}, domain.ErrInvalidCredentials
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh trades a refresh token for a new access token. The staff flag is
// re-read from the store.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.Token, error) {
	claims, err := s.issuer.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return auth.Token{}, err
	}
	id, _ := claims.UserID()

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return auth.Token{}, domain.ErrInvalidCredentials
		}
		return auth.Token{}, err
	}
	return s.issuer.IssueAccess(user)
}

func (s *UserService) Self(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, name domain.NameQuery) ([]domain.User, error) {
	return s.users.List(ctx, name)
}

var _ UserUseCase = (*UserService)(nil)
