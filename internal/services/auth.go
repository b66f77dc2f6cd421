package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/data/repos"
	types "github.com/sciezka-prawa/sciezka-backend/internal/domain"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/apierr"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/ctxutil"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/dbctx"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/logger"
)

type AuthConfig struct {
	JWTSecret string
	Audience  string
	// Leeway absorbs clock skew between Supabase and this service.
	Leeway time.Duration
}

// SupabaseClaims is the subset of a Supabase access token this service reads.
type SupabaseClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// SetContextFromToken verifies a Supabase access token and attaches the caller
	// (with the role stored on their profile) to the returned context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	Me(dbc dbctx.Context) (*types.Profile, error)
}

type authService struct {
	log      *logger.Logger
	profiles repos.ProfileRepo
	cfg      AuthConfig
	parser   *jwt.Parser
}

func NewAuthService(baseLog *logger.Logger, profiles repos.ProfileRepo, cfg AuthConfig) (AuthService, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("missing SUPABASE_JWT_SECRET")
	}
	if cfg.Audience == "" {
		cfg.Audience = "authenticated"
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = 30 * time.Second
	}
	return &authService{
		log:      baseLog.With("service", "AuthService"),
		profiles: profiles,
		cfg:      cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.Leeway),
		),
	}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.New(http.StatusUnauthorized, "missing_token", apierr.ErrUnauthorized)
	}
	claims := &SupabaseClaims{}
	parsed, err := as.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return ctx, apierr.New(http.StatusUnauthorized, "invalid_token", fmt.Errorf("%w: %v", apierr.ErrUnauthorized, err))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.New(http.StatusUnauthorized, "invalid_token", fmt.Errorf("%w: bad subject", apierr.ErrUnauthorized))
	}

	profile, err := as.ensureProfile(ctx, userID, claims)
	if err != nil {
		return ctx, err
	}
	if !profile.IsActive {
		return ctx, apierr.Forbidden("account_disabled", apierr.ErrForbidden)
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Email:       profile.Email,
		Role:        profile.Role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

// ensureProfile creates the profile on first sight and refreshes the email when
// Supabase reports a new one.
func (as *authService) ensureProfile(ctx context.Context, userID uuid.UUID, claims *SupabaseClaims) (*types.Profile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := as.profiles.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	email := strings.TrimSpace(strings.ToLower(claims.Email))
	if existing != nil && (email == "" || existing.Email == email) {
		return existing, nil
	}
	p := &types.Profile{
		ID:          userID,
		Email:       email,
		DisplayName: displayName(claims),
		Role:        types.RoleUser,
		IsActive:    true,
	}
	if existing != nil && p.DisplayName == "" {
		p.DisplayName = existing.DisplayName
	}
	saved, err := as.profiles.Upsert(dbc, p)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	if existing == nil {
		as.log.Info("profile created", "user_id", userID)
	}
	return saved, nil
}

func displayName(claims *SupabaseClaims) string {
	for _, key := range []string{"full_name", "name", "display_name"} {
		if v, ok := claims.UserMetadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (as *authService) Me(dbc dbctx.Context) (*types.Profile, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.ErrUnauthorized
	}
	p, err := as.profiles.GetByID(dbc, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return nil, apierr.NotFound("profile_not_found", apierr.ErrNotFound)
	}
	return p, nil
}
