package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	config "github.com/maheshrc27/feedqueue-api/configs"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/maheshrc27/feedqueue-api/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (username string, err error)
}

// googleProfile is the subset of the Google userinfo response we keep.
type googleProfile struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

type authService struct {
	oauth *oauth2.Config
	u     repository.UserRepository
	// fetchProfile is replaced in tests.
	fetchProfile func(ctx context.Context, client *http.Client) (*googleProfile, error)
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
		u:            u,
		fetchProfile: fetchGoogleProfile,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// LoginCallback exchanges the authorization code, then finds or creates the
// user. The email address is the username.
func (s *authService) LoginCallback(ctx context.Context, code string) (string, error) {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return "", err
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return "", err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	profile, err := s.fetchProfile(ctx, s.oauth.Client(ctx, token))
	if err != nil {
		return "", err
	}
	return s.upsertUser(ctx, profile)
}

func (s *authService) upsertUser(ctx context.Context, profile *googleProfile) (string, error) {
	user, isExist, err := s.u.GetByEmail(ctx, profile.Email)
	if err != nil {
		return "", err
	}

	if !isExist {
		_, err = s.u.Create(ctx, &models.User{
			Username:       profile.Email,
			GoogleID:       profile.ID,
			Email:          profile.Email,
			Name:           profile.Name,
			ProfilePicture: profile.Picture,
		})
		if err != nil {
			slog.Info(err.Error())
			return "", err
		}
		slog.Info("user created", "username", profile.Email)
		return profile.Email, nil
	}

	if user.GoogleID == "" || user.Name != profile.Name || user.ProfilePicture != profile.Picture {
		user.GoogleID = profile.ID
		user.Name = profile.Name
		user.ProfilePicture = profile.Picture
		if err := s.u.Update(ctx, user); err != nil {
			slog.Info(err.Error())
			return "", err
		}
	}
	return user.Username, nil
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (*googleProfile, error) {
	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("google account has no email address")
	}
	return &googleProfile{ID: info.Id, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}
