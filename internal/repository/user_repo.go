package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"parkspot/internal/db"
	apperrors "parkspot/internal/errors"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, phone, passwordHash string) (*db.User, error)
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByID(ctx context.Context, id int) (*db.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(database *sql.DB) UserRepository {
	return &userRepository{db: database}
}

func (r *userRepository) CreateUser(ctx context.Context, email, phone, passwordHash string) (*db.User, error) {
	var user db.User
	query := `
		INSERT INTO users (email, phone, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, email, phone, password_hash, created_at`
	err := r.db.QueryRowContext(ctx, query, email, phone, passwordHash).Scan(
		&user.ID, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	query := `SELECT id, email, phone, password_hash, created_at FROM users WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*db.User, error) {
	var user db.User
	query := `SELECT id, email, phone, password_hash, created_at FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, apperrors.ErrUserNotFound)
		}
		return nil, fmt.Errorf("error querying user by id: %w", err)
	}
	return &user, nil
}
