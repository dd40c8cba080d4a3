package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type ApiKeyRepository interface {
	GetByKey(ctx context.Context, apiKey string) (*models.ApiKey, bool, error)
	GetByUsername(ctx context.Context, username string) ([]*models.ApiKey, error)
	Create(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	Remove(ctx context.Context, username string, id int64) error
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) GetByKey(ctx context.Context, apiKey string) (*models.ApiKey, bool, error) {
	var key models.ApiKey
	query := "SELECT id, username, api_key, api_secret, created_at FROM api_keys WHERE api_key = $1"
	err := conn(ctx, r.db).QueryRowContext(ctx, query, apiKey).Scan(&key.ID, &key.Username, &key.ApiKey, &key.ApiSecret, &key.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &key, true, nil
}

func (r *apiKeyRepository) GetByUsername(ctx context.Context, username string) ([]*models.ApiKey, error) {
	query := `SELECT id, username, api_key, api_secret, created_at FROM api_keys WHERE username = $1 ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, username)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	apiKeys := []*models.ApiKey{}
	for rows.Next() {
		var apiKey models.ApiKey
		err := rows.Scan(&apiKey.ID, &apiKey.Username, &apiKey.ApiKey, &apiKey.ApiSecret, &apiKey.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		apiKeys = append(apiKeys, &apiKey)
	}
	return apiKeys, rows.Err()
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	query := "INSERT INTO api_keys (username, api_key, api_secret) VALUES ($1, $2, $3) RETURNING id"
	var id int64
	err := conn(ctx, r.db).QueryRowContext(ctx, query, apiKey.Username, apiKey.ApiKey, apiKey.ApiSecret).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *apiKeyRepository) Remove(ctx context.Context, username string, id int64) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND username = $2`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, username)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireAffected(res)
}
