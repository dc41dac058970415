package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartMerger folds an anonymous cart into a signed-in user's cart
type CartMerger interface {
	Merge(ctx context.Context, sessionToken string, userID uuid.UUID) error
}

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	SessionTTL time.Duration // lifetime of a browser session
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		SessionTTL: 30 * 24 * time.Hour,
	}
}

// AuthService handles registration, sign-in and session resolution
type AuthService struct {
	userRepo    identity.UserRepository
	sessionRepo identity.SessionRepository
	tokens      *auth.SessionTokens
	jwtService  *auth.JWTService
	events      shared.EventPublisher
	cartMerger  CartMerger
	config      AuthServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService creates a new authentication service.
// cartMerger may be nil, in which case login does not touch carts.
func NewAuthService(
	userRepo identity.UserRepository,
	sessionRepo identity.SessionRepository,
	tokens *auth.SessionTokens,
	jwtService *auth.JWTService,
	events shared.EventPublisher,
	cartMerger CartMerger,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultAuthServiceConfig().SessionTTL
	}
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		jwtService:  jwtService,
		events:      events,
		cartMerger:  cartMerger,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates a user with a password. The email is verified immediately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	email, err := identity.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Info("Registration with existing email", zap.String("email", email))
		return nil, identity.ErrEmailTaken
	}

	if input.Username != nil {
		if name := strings.TrimSpace(*input.Username); name != "" {
			taken, err := s.userRepo.ExistsByUsername(ctx, name)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, identity.ErrUsernameTaken
			}
		}
	}

	user, err := identity.NewUser(email, input.Password, input.Username)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	if err := shared.PublishAndClear(ctx, s.events, user); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	info := ToUserInfo(user)
	return &info, nil
}

// Login verifies credentials and opens a session. A failed lookup and a
// wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email, err := identity.NormalizeEmail(input.Email)
	if err != nil {
		return nil, identity.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.logger.Info("Login for unknown email", zap.String("email", email))
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, identity.ErrInvalidCredentials
	}

	token, hash, err := s.tokens.Generate()
	if err != nil {
		return nil, err
	}
	session := identity.NewUserSession(user.ID, hash, s.config.SessionTTL)
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	accessToken, accessExpiresAt, err := s.jwtService.GenerateAccessToken(user.ID, session.ID)
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, err
	}

	if input.CartSessionToken != "" && s.cartMerger != nil {
		if err := s.cartMerger.Merge(ctx, input.CartSessionToken, user.ID); err != nil {
			s.logger.Warn("Failed to merge anonymous cart on login",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", session.ID.String()))

	return &LoginResult{
		User:                 ToUserInfo(user),
		SessionToken:         token,
		SessionExpiresAt:     session.ExpiresAt,
		AccessToken:          accessToken,
		AccessTokenExpiresAt: accessExpiresAt,
		TokenType:            "Bearer",
	}, nil
}

// Logout tombstones a session. Logging out an unknown session succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, identity.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	session.Revoke()
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("session_id", sessionID.String()))
	return nil
}

// ResolveSession returns the caller behind a session cookie token
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, identity.ErrSessionNotFound
	}
	session, err := s.sessionRepo.FindByTokenHash(ctx, s.tokens.Hash(token))
	if err != nil {
		return nil, err
	}
	if !session.IsValid(s.now()) {
		return nil, identity.ErrSessionNotFound
	}
	return s.principalFor(ctx, session)
}

// AuthenticateBearer returns the caller behind a bearer access token.
// The session the token was issued for must still be live.
func (s *AuthService) AuthenticateBearer(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.ErrUnauthorized.WithMessage("Access token has expired")
		}
		return nil, shared.ErrUnauthorized.WithMessage("Invalid access token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, shared.ErrUnauthorized.WithMessage("Invalid access token")
	}
	sessionID, err := claims.SessionUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized.WithMessage("Invalid access token")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsValid(s.now()) || session.UserID != userID {
		return nil, identity.ErrSessionNotFound
	}
	return s.principalFor(ctx, session)
}

// CurrentUser returns a user's public fields
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

func (s *AuthService) principalFor(ctx context.Context, session *identity.UserSession) (*Principal, error) {
	user := session.User
	if user == nil {
		var err error
		if user, err = s.userRepo.FindByID(ctx, session.UserID); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return nil, identity.ErrSessionNotFound
			}
			return nil, err
		}
	}
	return &Principal{User: user, SessionID: session.ID}, nil
}
