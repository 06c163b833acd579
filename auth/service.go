package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	pkgzauth "github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/provider"
	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishkalaria12/snap-thumbs/config"
	"github.com/krishkalaria12/snap-thumbs/database"
	"github.com/krishkalaria12/snap-thumbs/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	Audience = "snap-thumbs-app"

	// IssueToken mints ids as "user_<id>". Tokens from the direct provider
	// carry a hashed id instead, with the login identity as the name.
	userIDPrefix = "user_"
)

var ErrInvalidCredentials = errors.New("invalid identity or password")

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service struct {
	auth  *pkgzauth.Service
	users UserStore
	ttl   time.Duration
}

func NewService(cfg config.AuthConfig, baseURL string, users UserStore) *Service {
	secret := cfg.JWTSecret
	options := pkgzauth.Opts{
		SecretReader: token.SecretFunc(func(id string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  cfg.TokenDuration,
		CookieDuration: cfg.CookieDuration,
		Issuer:         cfg.Issuer,
		URL:            baseURL,
		AvatarStore:    avatar.NewLocalFS(cfg.AvatarDir),
	}

	s := &Service{
		auth:  pkgzauth.NewService(options),
		users: users,
		ttl:   cfg.TokenDuration,
	}

	// direct provider backed by our user table, served under /auth/local/*
	s.auth.AddDirectProvider("local", provider.CredCheckerFunc(func(identity, password string) (bool, error) {
		_, err := s.ValidateUserCredentials(context.Background(), identity, password)
		if errors.Is(err, ErrInvalidCredentials) {
			return false, nil
		}
		return err == nil, err
	}))

	return s
}

// Handlers returns the go-pkgz login/logout handler for /auth/*.
func (s *Service) Handlers() http.Handler {
	authHandler, _ := s.auth.Handlers()
	return authHandler
}

// ValidateUserCredentials checks identity (username or email) and password
// against the user table.
func (s *Service) ValidateUserCredentials(ctx context.Context, identity, password string) (*models.User, error) {
	var user *models.User
	var err error

	if isEmail(identity) {
		user, err = s.users.FindByEmail(ctx, identity)
	} else {
		user, err = s.users.FindByUsername(ctx, identity)
	}

	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueToken creates a signed JWT for user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := token.Claims{
		User: &token.User{
			ID:    userIDPrefix + strconv.FormatUint(uint64(user.ID), 10),
			Name:  user.Username,
			Email: user.Email,
			Attributes: map[string]interface{}{
				"tier": user.Tier.Name,
			},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.auth.TokenService().Issuer,
			Audience:  []string{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return s.auth.TokenService().Token(claims)
}

// UserFromToken validates a JWT and loads the user it names.
func (s *Service) UserFromToken(ctx context.Context, tokenStr string) (*models.User, error) {
	claims, err := s.auth.TokenService().Parse(tokenStr)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims.User == nil {
		return nil, ErrInvalidCredentials
	}

	var user *models.User
	if idStr, ok := strings.CutPrefix(claims.User.ID, userIDPrefix); ok {
		id, parseErr := strconv.ParseUint(idStr, 10, 32)
		if parseErr != nil {
			return nil, ErrInvalidCredentials
		}
		user, err = s.users.FindByID(ctx, uint(id))
	} else if isEmail(claims.User.Name) {
		user, err = s.users.FindByEmail(ctx, claims.User.Name)
	} else {
		user, err = s.users.FindByUsername(ctx, claims.User.Name)
	}

	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	return user, err
}

// UserFromBasic checks base64 "identity:password" credentials, the part of
// an Authorization header after the Basic scheme.
func (s *Service) UserFromBasic(ctx context.Context, credentials string) (*models.User, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(credentials))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	identity, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.ValidateUserCredentials(ctx, identity, password)
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(hashed), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func isEmail(identity string) bool {
	_, err := mail.ParseAddress(identity)
	return err == nil
}
