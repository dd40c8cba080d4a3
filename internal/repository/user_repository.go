package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, bool, error)
	Create(ctx context.Context, user *models.User) (int64, error)
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	var user models.User
	query := "SELECT id, username, google_id, email, name, profile_picture, created_at, updated_at FROM users WHERE username = $1"
	err := conn(ctx, r.db).QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.GoogleID,
		&user.Email, &user.Name, &user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &user, true, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	var user models.User
	query := "SELECT id, username, google_id, email, name FROM users WHERE email = $1"
	err := conn(ctx, r.db).QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Username, &user.GoogleID, &user.Email, &user.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &user, true, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	query := "INSERT INTO users (username, google_id, email, name, profile_picture) VALUES ($1, $2, $3, $4, $5) RETURNING id"

	var id int64
	err := conn(ctx, r.db).QueryRowContext(ctx, query, user.Username, user.GoogleID, user.Email, user.Name, user.ProfilePicture).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, translate(err)
	}
	return id, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET google_id = $1,
			name = $2,
			profile_picture = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, user.GoogleID, user.Name, user.ProfilePicture, time.Now(), user.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
