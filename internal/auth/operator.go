package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Operator  string `json:"operator"`
}

// OperatorAuthenticator checks the single configured operator account
type OperatorAuthenticator struct {
	username     string
	passwordHash string
	jwtManager   *JWTManager
}

// NewOperatorAuthenticator creates an authenticator from config
func NewOperatorAuthenticator(cfg configs.AuthConfig, jwtManager *JWTManager) *OperatorAuthenticator {
	return &OperatorAuthenticator{
		username:     cfg.Username,
		passwordHash: cfg.PasswordHash,
		jwtManager:   jwtManager,
	}
}

// Login verifies the credentials and issues a token
func (a *OperatorAuthenticator) Login(req *LoginRequest) (*LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.username)) == 1
	passOK := CheckPassword(req.Password, a.passwordHash)
	if !userOK || !passOK {
		log.Warn().Str("username", req.Username).Msg("Operator login rejected")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := a.jwtManager.GenerateToken(a.username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info().Str("operator", a.username).Msg("Operator logged in")

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(expiresAt.Sub(a.jwtManager.now()).Seconds()),
		Operator:  a.username,
	}, nil
}
