package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a UserRepository backed by Postgres.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const uniqueViolation = "23505"

func (r *userRepository) Create(ctx context.Context, u *entity.User) error {
	addr, err := entity.MarshalAddress(u.Address)
	if err != nil {
		return fmt.Errorf("failed to encode address: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, role, address, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, addr, u.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return entity.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *userRepository) findOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	var (
		u    entity.User
		addr []byte
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, role, address, created_at FROM users WHERE "+where,
		arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &addr, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if u.Address, err = entity.UnmarshalAddress(addr); err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	return &u, nil
}

func (r *userRepository) UpdateAddress(ctx context.Context, id string, address *entity.Address) error {
	addr, err := entity.MarshalAddress(address)
	if err != nil {
		return fmt.Errorf("failed to encode address: %w", err)
	}

	res, err := r.db.ExecContext(ctx, "UPDATE users SET address = $1 WHERE id = $2", addr, id)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *userRepository) FindAdmins(ctx context.Context) ([]entity.User, error) {
	return r.findMany(ctx, "WHERE role = $1", entity.RoleAdmin)
}

func (r *userRepository) FindAll(ctx context.Context) ([]entity.User, error) {
	return r.findMany(ctx, "")
}

func (r *userRepository) findMany(ctx context.Context, where string, args ...any) ([]entity.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, email, password_hash, role, address, created_at FROM users "+where+" ORDER BY created_at",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		var (
			u    entity.User
			addr []byte
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &addr, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if u.Address, err = entity.UnmarshalAddress(addr); err != nil {
			return nil, fmt.Errorf("failed to decode address: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
