// Package auth issues and verifies HS256 access/refresh tokens and hashes
// passwords with bcrypt.
package auth

import (
	"strconv"
	"time"

	"github.com/Domenick1991/flightorders/config"
	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type Claims struct {
	Staff bool   `json:"staff"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID is the numeric subject of the token.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

type Token struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type TokenPair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(cfg config.AuthConfig) *Issuer {
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL(),
		refreshTTL: cfg.RefreshTTL(),
		now:        time.Now,
	}
}

func (i *Issuer) IssuePair(user *domain.User) (TokenPair, error) {
	access, err := i.issue(user, TokenAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.issue(user, TokenRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) IssueAccess(user *domain.User) (Token, error) {
	return i.issue(user, TokenAccess, i.accessTTL)
}

func (i *Issuer) issue(user *domain.User, typ string, ttl time.Duration) (Token, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Staff: user.IsStaff,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, errors.Wrap(err, "sign token")
	}
	return Token{Token: signed, Expires: exp}, nil
}

// Parse verifies raw and checks it is of type typ. Any failure is reported
// as domain.ErrInvalidCredentials.
func (i *Issuer) Parse(raw, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(domain.ErrInvalidCredentials, err.Error())
	}
	if claims.Type != typ {
		return nil, errors.Wrap(domain.ErrInvalidCredentials, "unexpected token type")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, errors.Wrap(domain.ErrInvalidCredentials, "bad subject")
	}
	return claims, nil
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
