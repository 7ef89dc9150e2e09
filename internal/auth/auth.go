// Package auth mints and verifies the two identity kinds match.PlayerIdentity
// distinguishes: registered members (bcrypt password, long-lived JWT api
// key, grounded on the teacher's server/auth.go + authHelpers.go) and guests
// (a browser id minted and signed the same way, supplementing the spec's
// member-only auth sketch with the browser-identity path §3 assumes exists).
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"matchcoordinator/internal/match"
)

const apiKeyExpiry = time.Hour * 24 * 30

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]*$`)

func ValidateUsername(username string) error {
	length := len([]rune(username))
	if length < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if length > 20 {
		return errors.New("username cannot be longer than 20 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username can only contain letters, numbers, and underscores")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len([]rune(password)) < 3 {
		return fmt.Errorf("password must be at least 3 characters")
	}
	return nil
}

// Account is the persisted member record, stored and fetched by whatever
// user store the httpapi layer is wired to (spec leaves the account store
// itself out of scope; only the identity it produces matters here).
type Account struct {
	UserID       string
	Username     string
	PasswordHash string
}

type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (Account, error)
	Create(ctx context.Context, username, passwordHash string) (Account, error)
}

type Authenticator struct {
	secret []byte
	store  AccountStore
}

func New(secret []byte, store AccountStore) *Authenticator {
	return &Authenticator{secret: secret, store: store}
}

// Register creates a new member account, rejecting a username already taken.
func (a *Authenticator) Register(ctx context.Context, username, password string) (Account, error) {
	if err := ValidateUsername(username); err != nil {
		return Account{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return Account{}, err
	}
	if _, err := a.store.GetByUsername(ctx, username); err == nil {
		return Account{}, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	return a.store.Create(ctx, username, string(hash))
}

// Login verifies credentials and returns a signed api key good for 30 days,
// the same expiry and RegisteredClaims shape the teacher's newApiKey used.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	account, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.signMember(account.UserID)
}

func (a *Authenticator) signMember(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(apiKeyExpiry)),
		ID:        "member:" + userID,
	})
	return token.SignedString(a.secret)
}

// GuestToken mints a signed identity for an unauthenticated browser session
// (spec §3's "guest" PlayerIdentity kind), using the same RegisteredClaims
// + HS256 shape as a member api key so both verify through one code path.
func (a *Authenticator) GuestToken(browserID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(apiKeyExpiry)),
		ID:        "guest:" + browserID,
	})
	return token.SignedString(a.secret)
}

// Secret exposes the signing key so the httpapi layer can hand it to
// echo-jwt's middleware instead of re-implementing token parsing.
func (a *Authenticator) Secret() []byte { return a.secret }

// Verify decodes an api key minted by either Login or GuestToken into the
// PlayerIdentity the rest of the coordinator deals in.
func (a *Authenticator) Verify(encodedToken string) (match.PlayerIdentity, error) {
	token, err := jwt.ParseWithClaims(encodedToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return match.PlayerIdentity{}, ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return match.PlayerIdentity{}, ErrInvalidCredentials
	}
	return a.IdentityFromClaims(claims)
}

// IdentityFromClaims maps already-parsed RegisteredClaims to a
// PlayerIdentity, factored out so echo-jwt's middleware (which parses the
// token itself) and Verify share one mapping.
func (a *Authenticator) IdentityFromClaims(claims *jwt.RegisteredClaims) (match.PlayerIdentity, error) {
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return match.PlayerIdentity{}, ErrInvalidCredentials
	}

	switch {
	case len(claims.ID) > len("member:") && claims.ID[:7] == "member:":
		userID := claims.ID[7:]
		account, err := a.lookupByID(userID)
		if err != nil {
			return match.PlayerIdentity{}, err
		}
		return match.NewMember(account.UserID, account.Username), nil
	case len(claims.ID) > len("guest:") && claims.ID[:6] == "guest:":
		return match.NewGuest(claims.ID[6:]), nil
	default:
		return match.PlayerIdentity{}, ErrInvalidCredentials
	}
}

func (a *Authenticator) lookupByID(userID string) (Account, error) {
	store, ok := a.store.(interface {
		GetByID(ctx context.Context, id string) (Account, error)
	})
	if !ok {
		return Account{}, errors.New("account store does not support id lookup")
	}
	return store.GetByID(context.Background(), userID)
}
