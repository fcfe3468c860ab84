package jwex

import (
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/quokkahq/tokenforge/pkg/cryptox"
)

// MinKeyBytes is the minimum accepted length for both the signing and the
// encryption key. A256GCM consumes exactly the first 32 bytes of the
// encryption key as its content-encryption key.
const MinKeyBytes = 32

var (
	// ErrKeyTooShort is returned by New for keys shorter than MinKeyBytes.
	ErrKeyTooShort = errors.New("jwex: key must be at least 32 bytes")

	// ErrInvalidToken covers parse, decryption and authentication-tag failures.
	ErrInvalidToken = errors.New("jwex: invalid token")

	// ErrTokenExpired is returned when the exp claim is in the past.
	ErrTokenExpired = errors.New("jwex: token has expired")

	// ErrTokenNotYetValid is returned when the nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("jwex: token not yet valid")
)

// Codec mints and validates access tokens. Claims are signed with HS256 and
// then carried in a dir+A256GCM JWE compact serialization (five segments:
// header, empty encrypted key, IV, ciphertext, tag).
type Codec struct {
	issuer        string
	signingKey    []byte
	encryptionKey []byte
}

// New builds a Codec. Both keys must be at least MinKeyBytes long; this is a
// startup precondition, not a recoverable runtime condition.
func New(issuer string, signingKey, encryptionKey []byte) (*Codec, error) {
	if len(signingKey) < MinKeyBytes {
		return nil, fmt.Errorf("%w: signing key is %d bytes", ErrKeyTooShort, len(signingKey))
	}
	if len(encryptionKey) < MinKeyBytes {
		return nil, fmt.Errorf("%w: encryption key is %d bytes", ErrKeyTooShort, len(encryptionKey))
	}

	return &Codec{
		issuer:        issuer,
		signingKey:    signingKey,
		encryptionKey: encryptionKey[:MinKeyBytes],
	}, nil
}

// MintParams carries everything needed to mint one access token.
type MintParams struct {
	TokenID   string // jti; a fresh UUID is generated when empty
	UserID    *int64 // nil for client_credentials grants
	Username  string
	Roles     []string
	ClientID  string
	Scopes    []string
	ExpiresAt time.Time
}

// Mint builds, signs and encrypts a claim set. The returned string is the
// JWE compact serialization.
func (c *Codec) Mint(p MintParams) (string, error) {
	if p.TokenID == "" {
		p.TokenID = uuid.NewString()
	}

	now := time.Now()
	std := jwt.Claims{
		Subject:   p.Username,
		Issuer:    c.issuer,
		Audience:  jwt.Audience{p.ClientID},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(p.ExpiresAt),
		ID:        p.TokenID,
	}
	priv := privateClaims{
		UserID:   p.UserID,
		Username: p.Username,
		Roles:    p.Roles,
		ClientID: p.ClientID,
		Scopes:   p.Scopes,
	}
	return c.seal(std, priv)
}

// seal signs the claim set, then wraps the same claims in a fresh encrypted
// envelope. The JWS is not nested inside the JWE; the AEAD tag is the wire
// integrity check.
func (c *Codec) seal(std jwt.Claims, priv privateClaims) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: c.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("jwex: create signer: %w", err)
	}
	if _, err := jwt.Signed(signer).Claims(std).Claims(priv).Serialize(); err != nil {
		return "", fmt.Errorf("jwex: sign claims: %w", err)
	}

	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.encryptionKey},
		(&jose.EncrypterOptions{}).WithContentType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("jwex: create encrypter: %w", err)
	}

	raw, err := jwt.Encrypted(enc).Claims(std).Claims(priv).Serialize()
	if err != nil {
		return "", fmt.Errorf("jwex: encrypt claims: %w", err)
	}
	return raw, nil
}

// ParseAndValidate decrypts a token and checks its validity window.
// Returns ErrInvalidToken for anything that fails to decrypt or parse,
// ErrTokenExpired / ErrTokenNotYetValid for window violations.
func (c *Codec) ParseAndValidate(token string) (*Claims, error) {
	parsed, err := jwt.ParseEncrypted(
		token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var std jwt.Claims
	var priv privateClaims
	if err := parsed.Claims(c.encryptionKey, &std, &priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := time.Now()
	if std.Expiry != nil && now.After(std.Expiry.Time()) {
		return nil, ErrTokenExpired
	}
	if std.NotBefore != nil && now.Before(std.NotBefore.Time()) {
		return nil, ErrTokenNotYetValid
	}

	claims := &Claims{
		Subject:  std.Subject,
		Issuer:   std.Issuer,
		TokenID:  std.ID,
		UserID:   priv.UserID,
		Username: priv.Username,
		Roles:    priv.Roles,
		ClientID: priv.ClientID,
		Scopes:   priv.Scopes,
	}
	if len(std.Audience) > 0 {
		claims.Audience = std.Audience[0]
	}
	if std.IssuedAt != nil {
		claims.IssuedAt = std.IssuedAt.Time()
	}
	if std.NotBefore != nil {
		claims.NotBefore = std.NotBefore.Time()
	}
	if std.Expiry != nil {
		claims.ExpiresAt = std.Expiry.Time()
	}
	return claims, nil
}

// IsValid reports whether a token decrypts and sits inside its validity
// window. It never returns an error; callers who need the failure reason use
// ParseAndValidate.
func (c *Codec) IsValid(token string) bool {
	_, err := c.ParseAndValidate(token)
	return err == nil
}

// Field extraction helpers. Each validates the token independently and
// returns a zero value on any failure.

func (c *Codec) Username(token string) string {
	claims, err := c.ParseAndValidate(token)
	if err != nil {
		return ""
	}
	return claims.Username
}

func (c *Codec) UserID(token string) *int64 {
	claims, err := c.ParseAndValidate(token)
	if err != nil {
		return nil
	}
	return claims.UserID
}

func (c *Codec) Roles(token string) []string {
	claims, err := c.ParseAndValidate(token)
	if err != nil {
		return nil
	}
	return claims.Roles
}

func (c *Codec) Scopes(token string) []string {
	claims, err := c.ParseAndValidate(token)
	if err != nil {
		return nil
	}
	return claims.Scopes
}

func (c *Codec) ClientID(token string) string {
	claims, err := c.ParseAndValidate(token)
	if err != nil {
		return ""
	}
	return claims.ClientID
}

func (c *Codec) ExpiresAt(token string) time.Time {
	claims, err := c.ParseAndValidate(token)
	if err != nil {
		return time.Time{}
	}
	return claims.ExpiresAt
}

// GenerateRefreshToken returns an opaque random refresh token (256 bits,
// base64url). It shares no structure with access tokens.
func (c *Codec) GenerateRefreshToken() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize256)
}
