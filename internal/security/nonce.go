package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Nonce actions used by the child forms, the delete script and checkout
const (
	ActionChildManager      = "wc_child_manager"
	ActionChildSubscription = "wc_child_subscription_manager_nonce"
	ActionCheckout          = "woocommerce-process_checkout"
)

// ErrInvalidNonce is returned for tokens that are malformed, expired,
// signed with another key, or issued for a different action or user
var ErrInvalidNonce = errors.New("invalid nonce")

type nonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// NonceManager issues and verifies short-lived request tokens. A token is a
// signed JWT bound to one action and one user, so no server-side state is kept.
type NonceManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewNonceManager creates a nonce manager signing with secret
func NewNonceManager(secret string, ttl time.Duration) *NonceManager {
	return &NonceManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Create returns a token for action on behalf of userID
func (m *NonceManager) Create(action string, userID int64) (string, error) {
	now := m.now()
	claims := nonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign nonce: %w", err)
	}
	return signed, nil
}

// Verify checks token against action and userID
func (m *NonceManager) Verify(token, action string, userID int64) error {
	if token == "" {
		return ErrInvalidNonce
	}

	claims := &nonceClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(strconv.FormatInt(userID, 10)),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if claims.Action != action {
		return fmt.Errorf("%w: issued for %q", ErrInvalidNonce, claims.Action)
	}
	return nil
}
