package app

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/eventra/eventra/internal/clock"
	"github.com/eventra/eventra/internal/domain"
)

// UserRepository persists accounts. Create maps a duplicate email to
// domain.ErrEmailTaken.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID string) (domain.User, error)
}

// TokenIssuer mints an access token for a verified account.
type TokenIssuer interface {
	Issue(userID string, role domain.Role) (string, error)
}

type UserService struct {
	repo   UserRepository
	tokens TokenIssuer
	clock  clock.Clock
}

func NewUserService(repo UserRepository, tokens TokenIssuer, clk clock.Clock) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		clock:  clk,
	}
}

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        domain.Role
	ProfileInfo string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return domain.User{}, domain.ErrInvalidRegistration
	}
	if in.Role != domain.RoleOrganizer && in.Role != domain.RoleAttendee {
		return domain.User{}, domain.ErrInvalidRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           newID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		ProfileInfo:  in.ProfileInfo,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and returns the account with a signed token.
// A missing account and a wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return domain.User{}, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrInvalidID
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}
