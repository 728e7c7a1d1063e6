package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campushub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
)

// CreateUser inserts a new account and returns its id. The password must
// already be hashed by the caller.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash, firstName, lastName string) (int64, error) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("users")
	ib.Cols("email", "password", "first_name", "last_name")
	ib.Values(email, passwordHash, firstName, lastName)
	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	err := db.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("insert error: %w", err)
	}

	return id, nil
}

// GetUserByEmail returns the account and stored password hash for login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, string, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "email", "password", "first_name", "last_name", "role", "created_at")
	sb.From("users")
	sb.Where(sb.Equal("email", email))

	query, args := sb.Build()

	var user models.User
	var hash string
	err := db.db.QueryRowContext(ctx, query, args...).Scan(
		&user.Id, &user.Email, &hash, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("query error: %w", err)
	}

	return &user, hash, nil
}

// GetUser returns the account with the given id.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "email", "first_name", "last_name", "role", "created_at")
	sb.From("users")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var user models.User
	err := db.db.QueryRowContext(ctx, query, args...).Scan(
		&user.Id, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	return &user, nil
}

// writeContext bounds single-statement writes the same way across repositories.
func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}
