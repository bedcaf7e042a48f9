package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"threadfeed/feeds"
	"threadfeed/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken wraps every credential failure the reader is responsible for
	ErrInvalidToken = fmt.Errorf("invalid token: %w", feeds.ErrInvalidCredential)
	// ErrInvalidPassword is returned when a password does not match the stored hash
	ErrInvalidPassword = errors.New("invalid username or password")
)

// Claims identifies a local user. Subject is the local user id, ID is the
// login token id.
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 feed credentials
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TokenWriter persists issued login tokens
type TokenWriter interface {
	CreateLoginToken(ctx context.Context, token models.LoginToken) error
}

// Issue signs a new credential for the user and records it so it can be revoked
func (t *Tokens) Issue(ctx context.Context, store TokenWriter, user models.LocalUserView) (string, error) {
	now := t.now().UTC().Truncate(time.Second)
	record := models.LoginToken{
		Id:          uuid.NewString(),
		LocalUserId: user.LocalUser.Id,
		Published:   now,
		Expires:     now.Add(t.ttl),
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(user.LocalUser.Id, 10),
			ID:        record.Id,
			IssuedAt:  jwt.NewNumericDate(record.Published),
			ExpiresAt: jwt.NewNumericDate(record.Expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if err := store.CreateLoginToken(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store login token: %w", err)
	}

	log.WithFields(log.Fields{
		"localUserId": user.LocalUser.Id,
		"tokenId":     record.Id,
		"expires":     record.Expires,
	}).Info("Issued feed token")

	return signed, nil
}

// Parse verifies signature, issuer and expiry and returns the claims
func (t *Tokens) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return claims, nil
}

// LocalUserId returns the subject as a local user id
func (c *Claims) LocalUserId() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}
	return id, nil
}

// HashPassword returns the bcrypt hash stored in local_user.password_encrypted
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password against a bcrypt hash. An empty hash never
// matches.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}
