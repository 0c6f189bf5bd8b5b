package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eventra/eventra/internal/clock"
	"github.com/eventra/eventra/internal/domain"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("registers an attendee", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo, &fakeIssuer{token: "tok"}, clock.NewFixed(now))

		user, err := svc.Register(context.Background(), RegisterInput{
			Name:     "Alice",
			Email:    "  Alice@Example.COM ",
			Password: "hunter22",
			Role:     domain.RoleAttendee,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.Email != "alice@example.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
		if user.PasswordHash != "" {
			t.Fatalf("expected password hash stripped from the result")
		}

		stored := repo.users[user.ID]
		if stored.PasswordHash == "" || stored.PasswordHash == "hunter22" {
			t.Fatalf("expected stored password to be hashed")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
	})

	t.Run("rejects incomplete input", func(t *testing.T) {
		svc := NewUserService(newFakeUserRepo(), &fakeIssuer{}, clock.NewFixed(now))
		cases := []struct {
			name string
			in   RegisterInput
		}{
			{"missing name", RegisterInput{Email: "a@b.c", Password: "x", Role: domain.RoleAttendee}},
			{"missing email", RegisterInput{Name: "a", Password: "x", Role: domain.RoleAttendee}},
			{"missing password", RegisterInput{Name: "a", Email: "a@b.c", Role: domain.RoleAttendee}},
			{"bogus role", RegisterInput{Name: "a", Email: "a@b.c", Password: "x", Role: "admin"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := svc.Register(context.Background(), tc.in); !errors.Is(err, domain.ErrInvalidRegistration) {
					t.Fatalf("expected ErrInvalidRegistration, got %v", err)
				}
			})
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo, &fakeIssuer{}, clock.NewFixed(now))

		in := RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "x", Role: domain.RoleAttendee}
		if _, err := svc.Register(context.Background(), in); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestUserService_Login(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*UserService, *fakeUserRepo) {
		t.Helper()
		repo := newFakeUserRepo()
		svc := NewUserService(repo, &fakeIssuer{token: "signed-token"}, clock.NewFixed(now))
		_, err := svc.Register(context.Background(), RegisterInput{
			Name: "Alice", Email: "alice@example.com", Password: "hunter22", Role: domain.RoleOrganizer,
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		return svc, repo
	}

	t.Run("returns the user and a token", func(t *testing.T) {
		svc, _ := setup(t)

		user, token, err := svc.Login(context.Background(), "ALICE@example.com", "hunter22")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "signed-token" {
			t.Fatalf("expected issued token, got %q", token)
		}
		if user.PasswordHash != "" {
			t.Fatalf("expected password hash stripped from the result")
		}
		if user.Role != domain.RoleOrganizer {
			t.Fatalf("expected organizer role, got %s", user.Role)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := setup(t)
		if _, _, err := svc.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown account looks like wrong credentials", func(t *testing.T) {
		svc, _ := setup(t)
		if _, _, err := svc.Login(context.Background(), "nobody@example.com", "hunter22"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestUserService_GetProfile(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	repo.users["u1"] = domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: "hash", Role: domain.RoleAttendee}
	svc := NewUserService(repo, &fakeIssuer{}, clock.NewSystem())

	user, err := svc.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatalf("expected password hash stripped from the result")
	}

	if _, err := svc.GetProfile(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, userID string) (domain.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeIssuer struct {
	token string
	err   error
}

func (f *fakeIssuer) Issue(_ string, _ domain.Role) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}
