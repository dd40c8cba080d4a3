package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
	"github.com/maheshrc27/feedqueue-api/internal/transfer"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
)

const maxApiKeys = 5

var (
	ErrTooManyKeys        = errors.New("only 5 API keys can be created")
	ErrInvalidCredentials = errors.New("invalid API credentials")
)

type ApiKeyService interface {
	Create(ctx context.Context, username string) (*transfer.ApiKeyCreated, error)
	List(ctx context.Context, username string) ([]*models.ApiKey, error)
	Authenticate(ctx context.Context, apiKey, apiSecret string) (string, error)
	RemoveAPIKey(ctx context.Context, username string, keyID int64) error
}

type apiKeyService struct {
	k   repository.ApiKeyRepository
	key []byte
}

// NewApiKeyService seals secrets with sealingKey, a 32 byte AES key.
func NewApiKeyService(k repository.ApiKeyRepository, sealingKey []byte) ApiKeyService {
	return &apiKeyService{
		k:   k,
		key: sealingKey,
	}
}

// Create issues a key pair. The plaintext secret is only ever returned here.
func (s *apiKeyService) Create(ctx context.Context, username string) (*transfer.ApiKeyCreated, error) {
	keys, err := s.k.GetByUsername(ctx, username)
	if err != nil {
		return nil, accessErr("api keys", "*", username, err)
	}
	if len(keys) >= maxApiKeys {
		slog.Info(ErrTooManyKeys.Error(), "username", username)
		return nil, goerrors.Wrap(ErrTooManyKeys, goerrors.CategoryValidation, "Only 5 API Keys can be created.").WithTextCode("TOO_MANY_KEYS")
	}

	key, err := gonanoid.New(32)
	if err != nil {
		return nil, &DataUpdateError{Op: "generate api key", Err: err}
	}
	secret, err := utils.GenerateRandomKey(32)
	if err != nil {
		return nil, &DataUpdateError{Op: "generate api secret", Err: err}
	}
	sealed, err := utils.Encrypt([]byte(secret), s.key)
	if err != nil {
		return nil, &DataUpdateError{Op: "seal api secret", Err: err}
	}

	id, err := s.k.Create(ctx, &models.ApiKey{
		Username:  username,
		ApiKey:    key,
		ApiSecret: sealed,
	})
	if err != nil {
		return nil, updateErr("create api key", "api key", key, username, err)
	}
	return &transfer.ApiKeyCreated{ID: id, ApiKey: key, ApiSecret: secret}, nil
}

func (s *apiKeyService) List(ctx context.Context, username string) ([]*models.ApiKey, error) {
	keys, err := s.k.GetByUsername(ctx, username)
	if err != nil {
		return nil, accessErr("api keys", "*", username, err)
	}
	return keys, nil
}

// Authenticate resolves a key pair to its owner.
func (s *apiKeyService) Authenticate(ctx context.Context, apiKey, apiSecret string) (string, error) {
	if apiKey == "" || apiSecret == "" {
		return "", ErrInvalidCredentials
	}
	key, isExist, err := s.k.GetByKey(ctx, apiKey)
	if err != nil {
		return "", err
	}
	if !isExist {
		return "", ErrInvalidCredentials
	}

	stored, err := utils.Decrypt(key.ApiSecret, s.key)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(apiSecret)) != 1 {
		return "", ErrInvalidCredentials
	}
	return key.Username, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, username string, keyID int64) error {
	if keyID <= 0 {
		return invalid(ErrInvalidField, invalidFieldCode, "KeyID is not valid")
	}
	err := s.k.Remove(ctx, username, keyID)
	return updateErr("remove api key", "api key", keyID, username, err)
}
