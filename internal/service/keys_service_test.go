package service

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
	"github.com/maheshrc27/feedqueue-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeyRepo struct {
	keys []*models.ApiKey
}

func (r *memKeyRepo) GetByKey(_ context.Context, apiKey string) (*models.ApiKey, bool, error) {
	for _, k := range r.keys {
		if k.ApiKey == apiKey {
			return k, true, nil
		}
	}
	return nil, false, nil
}

func (r *memKeyRepo) GetByUsername(_ context.Context, username string) ([]*models.ApiKey, error) {
	var out []*models.ApiKey
	for _, k := range r.keys {
		if k.Username == username {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *memKeyRepo) Create(_ context.Context, apiKey *models.ApiKey) (int64, error) {
	apiKey.ID = int64(len(r.keys) + 1)
	r.keys = append(r.keys, apiKey)
	return apiKey.ID, nil
}

func (r *memKeyRepo) Remove(_ context.Context, username string, id int64) error {
	for i, k := range r.keys {
		if k.ID == id && k.Username == username {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func TestApiKeyCreateAndAuthenticate(t *testing.T) {
	repo := &memKeyRepo{}
	svc := NewApiKeyService(repo, utils.SealingKey("secret"))
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, created.ApiKey, 32)
	assert.NotEqual(t, created.ApiSecret, repo.keys[0].ApiSecret)

	username, err := svc.Authenticate(ctx, created.ApiKey, created.ApiSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = svc.Authenticate(ctx, created.ApiKey, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "missing", created.ApiSecret)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestApiKeyLimit(t *testing.T) {
	svc := NewApiKeyService(&memKeyRepo{}, utils.SealingKey("secret"))
	ctx := context.Background()
	for i := 0; i < maxApiKeys; i++ {
		_, err := svc.Create(ctx, "alice")
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "alice")
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))

	_, err = svc.Create(ctx, "bob")
	assert.NoError(t, err)
}

func TestRemoveAPIKeyOfOtherUser(t *testing.T) {
	repo := &memKeyRepo{}
	svc := NewApiKeyService(repo, utils.SealingKey("secret"))
	ctx := context.Background()
	created, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	err = svc.RemoveAPIKey(ctx, "bob", created.ID)
	var access *DataAccessError
	assert.ErrorAs(t, err, &access)

	require.NoError(t, svc.RemoveAPIKey(ctx, "alice", created.ID))
	keys, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type memUserRepo struct {
	users []*models.User
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*models.User, bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return nil, false, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return nil, false, nil
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) (int64, error) {
	user.ID = int64(len(r.users) + 1)
	r.users = append(r.users, user)
	return user.ID, nil
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) error {
	return nil
}

func TestUpsertUserCreatesThenUpdates(t *testing.T) {
	repo := &memUserRepo{}
	svc := &authService{u: repo, fetchProfile: func(context.Context, *http.Client) (*googleProfile, error) { return nil, nil }}
	ctx := context.Background()

	username, err := svc.upsertUser(ctx, &googleProfile{ID: "g1", Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", username)
	require.Len(t, repo.users, 1)

	username, err = svc.upsertUser(ctx, &googleProfile{ID: "g1", Email: "a@example.com", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", username)
	assert.Len(t, repo.users, 1)
	assert.Equal(t, "Alice", repo.users[0].Name)

	info, err := NewUserService(repo).GetUserInfo(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "g1", info.GoogleID)

	_, err = NewUserService(repo).GetUserInfo(ctx, "nobody")
	var access *DataAccessError
	assert.ErrorAs(t, err, &access)
}

func TestLoginCallbackRejectsEmptyCode(t *testing.T) {
	svc := &authService{}
	_, err := svc.LoginCallback(context.Background(), "")
	assert.Error(t, err)
}
