package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventra/eventra/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, profile_info, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, name, email, password_hash, role, profile_info, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := exec(ctx, r.pool, stmt,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.ProfileInfo,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getUser(ctx, q, email)
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, q, userID)
}

func (r *UserRepository) getUser(ctx context.Context, q string, arg any) (domain.User, error) {
	var u domain.User
	var role string
	err := queryRow(ctx, r.pool, q, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.ProfileInfo, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) || err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
