package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"redcodegreencode/internal/config"
	"redcodegreencode/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService checks team and admin credentials. The admin principal
// is a hardcoded sentinel name, never a stored team record. Team
// passwords are compared in plain text against the stored record.
type AuthService struct {
	adminName     string
	adminPassword string
	jwtSecret     []byte
}

// NewAuthService creates a new auth service
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		adminName:     cfg.AdminTeamName,
		adminPassword: cfg.AdminPassword,
		jwtSecret:     []byte(cfg.JWTSecret),
	}
}

// IsAdminName reports whether a display name denotes the admin principal
func (s *AuthService) IsAdminName(teamName string) bool {
	return teamName == s.adminName
}

// CheckAdminLogin validates the sentinel admin credentials
func (s *AuthService) CheckAdminLogin(teamName, password string) bool {
	return teamName == s.adminName && password == s.adminPassword
}

// GenerateSessionToken mints a signed token returned with a successful
// login. Channel membership stays advisory; the token is a client
// session convenience, not a transport-level boundary.
func (s *AuthService) GenerateSessionToken(teamID, teamName string, isAdmin bool) (string, error) {
	claims := &model.SessionClaims{
		TeamID:   teamID,
		TeamName: teamName,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateSessionToken validates a session JWT and returns its claims
func (s *AuthService) ValidateSessionToken(tokenString string) (*model.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
