package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/leadcenter/pkg/logging"
)

const (
	tokenTTL       = 24 * time.Hour
	bcryptCost     = 10
	minPasswordLen = 6
)

// Claims are the JWT claims embedded in issued tokens.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service implements credential checks, token issuance and user management.
type Service struct {
	repo   *Repository
	secret []byte
	logger *logging.Logger
}

// NewService creates the access-control service.
func NewService(repo *Repository, secret string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, secret: []byte(secret), logger: logger}
}

// Login checks the credentials and issues a signed, time-limited token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return token, user, nil
}

// Authenticate parses and validates a bearer token.
func (s *Service) Authenticate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

// Register creates a new user account. Role defaults to operator.
func (s *Service) Register(ctx context.Context, username, password, role string) (*User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	if role == "" {
		role = RoleOperator
	}
	if role != RoleAdmin && role != RoleOperator {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, username, string(hash), role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// DeleteUser removes an account. The acting admin's own account and the
// bootstrap admin are protected.
func (s *Service) DeleteUser(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return ErrProtectedUser
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Username == BootstrapUsername {
		return ErrProtectedUser
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id, "actor_id", actorID)
	return nil
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// EnsureBootstrapAdmin creates the default admin account when the user set
// is empty. Safe to run on every startup.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcryptCost)
	if err != nil {
		return fmt.Errorf("auth: hash bootstrap password: %w", err)
	}
	if _, err := s.repo.Create(ctx, BootstrapUsername, string(hash), RoleAdmin); err != nil {
		// A concurrent boot may have won the race; duplicate is fine.
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return err
	}
	s.logger.Warn("bootstrap admin created with default password, change it", "username", BootstrapUsername)
	return nil
}
