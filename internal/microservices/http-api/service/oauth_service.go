package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"appgambit/internal/apperr"
	"appgambit/internal/cache"
	"appgambit/internal/config"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const oauthStateTTL = 10 * time.Minute

var ErrOAuthDisabled = fmt.Errorf("%w: external login is not configured", apperr.ErrNotFound)

// ExternalIdentity is the subset of the provider's userinfo we use.
type ExternalIdentity struct {
	Subject  string
	Email    string
	Name     string
	Username string
}

// UnmarshalJSON accepts the OIDC field names and the GitHub-style ones.
func (e *ExternalIdentity) UnmarshalJSON(b []byte) error {
	var raw struct {
		Sub               string          `json:"sub"`
		ID                json.RawMessage `json:"id"`
		Email             string          `json:"email"`
		Name              string          `json:"name"`
		PreferredUsername string          `json:"preferred_username"`
		Login             string          `json:"login"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Subject = raw.Sub
	if e.Subject == "" && len(raw.ID) > 0 {
		e.Subject = strings.Trim(string(raw.ID), `"`)
	}
	e.Email = raw.Email
	e.Name = raw.Name
	e.Username = raw.PreferredUsername
	if e.Username == "" {
		e.Username = raw.Login
	}
	return nil
}

type OAuthService interface {
	Enabled() bool
	Provider() string
	// Begin returns the provider URL to redirect to and the state to echo back.
	Begin(ctx context.Context) (authURL, state string, err error)
	// Complete exchanges the code, resolves the local user and signs them in.
	Complete(ctx context.Context, state, code string) (*TokenPair, *models.User, error)
}

type oauthService struct {
	conf        *oauth2.Config
	provider    string
	userInfoURL string
	users       repository.UserRepository
	auth        AuthService
	pkce        PKCEService
	states      cache.Cache
	logger      *slog.Logger
}

// NewOAuthService returns a disabled service when cfg has no provider.
// Pending states live in states so any instance can finish the flow.
func NewOAuthService(cfg *config.Config, users repository.UserRepository, auth AuthService, pkce PKCEService, states cache.Cache, logger *slog.Logger) OAuthService {
	s := &oauthService{
		provider:    cfg.OAuthProvider,
		userInfoURL: cfg.OAuthUserInfoURL,
		users:       users,
		auth:        auth,
		pkce:        pkce,
		states:      states,
		logger:      orDefault(logger),
	}
	if cfg.OAuthEnabled() {
		s.conf = &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       cfg.OAuthScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		}
	}
	return s
}

func (s *oauthService) Enabled() bool { return s.conf != nil && s.states != nil }

func (s *oauthService) Provider() string { return s.provider }

func stateKey(state string) string { return "oauth:state:" + state }

func (s *oauthService) Begin(ctx context.Context) (string, string, error) {
	if !s.Enabled() {
		return "", "", ErrOAuthDisabled
	}
	// use PKCE to protect against CSRF and code interception
	verifier := s.pkce.GenerateCodeVerifier()
	state := uuid.New().String()
	if err := s.states.Set(ctx, stateKey(state), []byte(verifier), cache.Options{TTL: oauthStateTTL}); err != nil {
		return "", "", fmt.Errorf("store oauth state: %w", err)
	}
	url := s.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("code_challenge", s.pkce.GenerateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"))
	return url, state, nil
}

func (s *oauthService) Complete(ctx context.Context, state, code string) (*TokenPair, *models.User, error) {
	if !s.Enabled() {
		return nil, nil, ErrOAuthDisabled
	}
	if state == "" || code == "" {
		return nil, nil, apperr.Validation("code", "state and code are required")
	}

	raw, ok, err := s.states.Get(ctx, stateKey(state))
	if err != nil {
		return nil, nil, fmt.Errorf("load oauth state: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown or expired login state", apperr.ErrUnauthorized)
	}
	// states are single use
	if err := s.states.Delete(ctx, stateKey(state)); err != nil {
		s.logger.WarnContext(ctx, "failed to drop oauth state", "err", err)
	}

	token, err := s.conf.Exchange(ctx, code, oauth2.VerifierOption(string(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: could not exchange code for token", apperr.ErrUnauthorized)
	}

	identity, err := s.fetchIdentity(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.auth.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "user_id", user.ID, "err", err)
	}
	return pair, user, nil
}

func (s *oauthService) fetchIdentity(ctx context.Context, token *oauth2.Token) (*ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, apperr.IO("fetch userinfo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.IO("fetch userinfo", fmt.Errorf("provider answered %s", resp.Status))
	}

	var identity ExternalIdentity
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&identity); err != nil {
		return nil, apperr.IO("decode userinfo", err)
	}
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: provider returned no subject", apperr.ErrUnauthorized)
	}
	return &identity, nil
}

// resolveUser links by (provider, subject), then by email, else creates an account.
func (s *oauthService) resolveUser(ctx context.Context, id *ExternalIdentity) (*models.User, error) {
	user, err := s.users.FindByExternalLogin(ctx, s.provider, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if id.Email != "" {
		user, err = s.users.FindByEmail(ctx, id.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if user == nil {
		if id.Email == "" {
			return nil, apperr.Validation("email", "the provider did not share an email address")
		}
		if user, err = s.createUser(ctx, id); err != nil {
			return nil, err
		}
	}

	if err := s.users.AddExternalLogin(ctx, &models.ExternalLogin{
		Provider:       s.provider,
		ProviderUserID: id.Subject,
		UserID:         user.ID,
	}); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "external login linked", "provider", s.provider, "user_id", user.ID)
	return user, nil
}

var usernameChars = regexp.MustCompile(`[^a-z0-9_.-]+`)

func (s *oauthService) createUser(ctx context.Context, id *ExternalIdentity) (*models.User, error) {
	base := id.Username
	if base == "" {
		base, _, _ = strings.Cut(id.Email, "@")
	}
	base = usernameChars.ReplaceAllString(strings.ToLower(base), "")
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 40 {
		base = base[:40]
	}

	// a few attempts with a random suffix when the name is taken
	name := base
	for attempt := 0; attempt < 5; attempt++ {
		user := &models.User{
			Username:    name,
			DisplayName: id.Name,
			Email:       id.Email,
			Role:        models.RoleUser,
		}
		err := s.users.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return nil, err
		}
		name = base + "-" + uuid.New().String()[:6]
	}
	return nil, apperr.Conflict("could not pick a free username")
}
