package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"winery_backend/internal/cache"
	"winery_backend/internal/models"
	"winery_backend/internal/repositories"
	"winery_backend/pkg/utils"
)

// bcryptCost is a variable so tests can lower it.
var bcryptCost = bcrypt.DefaultCost

// ChangePasswordRequest DTO
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// LoginResponse DTO
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     *models.Account `json:"account"`
}

// AuthService is the authorization gate: it turns credentials into sessions
// and decides whether a session may perform role-gated operations.
type AuthService interface {
	Authenticate(ctx context.Context, creds models.Credentials) (*models.Session, *LoginResponse, error)
	SessionFromToken(ctx context.Context, token string) (*models.Session, error)
	Authorize(ctx context.Context, session *models.Session, roles ...models.Role) (bool, error)
	Logout(ctx context.Context, session *models.Session) error
	Me(ctx context.Context, session *models.Session) (*models.Account, error)
	ChangePassword(ctx context.Context, session *models.Session, req ChangePasswordRequest) error
	EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error)
}

type authService struct {
	accountRepo  repositories.AccountRepository
	supplierRepo repositories.SupplierRepository
	activity     repositories.ActivityRepository
	tokens       *utils.TokenIssuer
	sessions     cache.SessionStore
	now          func() time.Time
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(
	accountRepo repositories.AccountRepository,
	supplierRepo repositories.SupplierRepository,
	activity repositories.ActivityRepository,
	tokens *utils.TokenIssuer,
	sessions cache.SessionStore,
) AuthService {
	return &authService{
		accountRepo:  accountRepo,
		supplierRepo: supplierRepo,
		activity:     activity,
		tokens:       tokens,
		sessions:     sessions,
		now:          time.Now,
	}
}

// Authenticate verifies credentials. Unknown usernames and wrong passwords are
// indistinguishable to the caller.
func (s *authService) Authenticate(ctx context.Context, creds models.Credentials) (*models.Session, *LoginResponse, error) {
	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, nil, ErrAccountInactive
	}

	token, claims, err := s.tokens.Generate(account.ID, account.Username, account.Role.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue token: %w", err)
	}
	session := sessionFromClaims(claims)

	if err := s.activity.Record(ctx, nil, account.ID, ActionLogin); err != nil {
		// a missing audit row must not block a valid login
		log.Warn().Err(err).Int64("account_id", account.ID).Msg("Failed to record login activity")
	}
	if account.Role == models.RoleSupplier {
		profile, err := s.supplierRepo.GetByAccountID(ctx, account.ID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			// the token is already issued; the profile is only decoration on the response
			log.Warn().Err(err).Int64("account_id", account.ID).Msg("Failed to load supplier profile at login")
		}
		account.SupplierProfile = profile
	}

	log.Info().Int64("account_id", account.ID).Str("role", account.Role.String()).Msg("Login succeeded")
	return session, &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   session.ExpiresAt,
		Account:     account,
	}, nil
}

// SessionFromToken validates a bearer token and rejects revoked ones.
func (s *authService) SessionFromToken(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role claim", utils.ErrInvalidToken)
	}
	claims.Role = role.String()
	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session has been logged out", utils.ErrInvalidToken)
	}
	return sessionFromClaims(claims), nil
}

// Authorize is true only when the session role is one of roles and the account
// is still active with that same role.
func (s *authService) Authorize(ctx context.Context, session *models.Session, roles ...models.Role) (bool, error) {
	if !session.HasRole(roles...) {
		return false, nil
	}
	account, err := s.accountRepo.GetByID(ctx, nil, session.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load account %d: %w", session.AccountID, err)
	}
	return account.IsActive && account.Role == session.Role, nil
}

func (s *authService) Logout(ctx context.Context, session *models.Session) error {
	if session == nil || session.TokenID == "" {
		return nil
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.sessions.Revoke(ctx, session.TokenID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if err := s.activity.Record(ctx, nil, session.AccountID, ActionLogout); err != nil {
		log.Warn().Err(err).Int64("account_id", session.AccountID).Msg("Failed to record logout activity")
	}
	return nil
}

func (s *authService) Me(ctx context.Context, session *models.Session) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, nil, session.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %d: %w", session.AccountID, err)
	}
	if account.Role == models.RoleSupplier {
		profile, err := s.supplierRepo.GetByAccountID(ctx, account.ID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load supplier profile: %w", err)
		}
		account.SupplierProfile = profile
	}
	return account, nil
}

func (s *authService) ChangePassword(ctx context.Context, session *models.Session, req ChangePasswordRequest) error {
	if !utils.IsValidPasswordLength(req.NewPassword, MinPasswordLength) {
		return ErrWeakPassword
	}
	account, err := s.accountRepo.GetByID(ctx, nil, session.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to load account %d: %w", session.AccountID, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdatePassword(ctx, nil, account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.activity.Record(ctx, nil, account.ID, ActionPasswordChange); err != nil {
		log.Warn().Err(err).Int64("account_id", account.ID).Msg("Failed to record password change")
	}
	return nil
}

// EnsureBootstrapAdmin creates the first admin account when no accounts exist.
// It reports whether an account was created.
func (s *authService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := s.accountRepo.Count(ctx, false)
	if err != nil {
		return false, fmt.Errorf("failed to count accounts: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if !utils.IsValidPasswordLength(password, MinPasswordLength) {
		return false, ErrWeakPassword
	}
	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}
	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  "Administrator",
		Role:         models.RoleAdmin,
	}
	if _, err := s.accountRepo.Create(ctx, nil, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	log.Info().Str("username", username).Msg("Bootstrap admin account created")
	return true, nil
}

func sessionFromClaims(claims *utils.Claims) *models.Session {
	session := &models.Session{
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Role:      models.Role(claims.Role),
		TokenID:   claims.ID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
