package sessions

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

// TokenSigner mints and verifies the opaque session tokens handed to
// clients. A token is a compact Ed25519 JWS over the session record, binding
// the session id to the principal it was issued for. Verification rejects
// forged or foreign tokens before any registry or store side effect occurs.
//
// Keys live only in process memory. Rotated-out keys remain in the verify
// set so tokens minted before a rotation keep resolving for the life of the
// process.
type TokenSigner struct {
	activeKid string
	privKeys  map[string]ed25519.PrivateKey
	pubKeys   map[string]ed25519.PublicKey
}

type tokenRecord struct {
	SessionID string `json:"sid"`
	Subject   string `json:"sub,omitempty"`
	IssuedAt  int64  `json:"iat"`
}

// NewTokenSigner generates a fresh Ed25519 key pair and returns a signer
// using it as the active key.
func NewTokenSigner() (*TokenSigner, error) {
	s := &TokenSigner{
		privKeys: make(map[string]ed25519.PrivateKey),
		pubKeys:  make(map[string]ed25519.PublicKey),
	}
	if err := s.RotateKey(); err != nil {
		return nil, err
	}
	return s, nil
}

// RotateKey generates a new key pair and makes it the active signing key.
// Previously minted tokens continue to verify.
func (s *TokenSigner) RotateKey() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}
	kidBytes := make([]byte, 4)
	if _, err := rand.Read(kidBytes); err != nil {
		return fmt.Errorf("generate kid: %w", err)
	}
	kid := hex.EncodeToString(kidBytes)
	s.privKeys[kid] = priv
	s.pubKeys[kid] = pub
	s.activeKid = kid
	return nil
}

// Mint returns the session token for the given session id and principal.
func (s *TokenSigner) Mint(sessionID, userID string) (string, error) {
	payload, err := json.Marshal(tokenRecord{
		SessionID: sessionID,
		Subject:   userID,
		IssuedAt:  time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal token record: %w", err)
	}

	priv := s.privKeys[s.activeKid]
	opts := (&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", s.activeKid)
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: priv}, opts)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}
	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return compact, nil
}

// Verify parses and verifies a session token, returning the session id and
// the principal it was minted for.
func (s *TokenSigner) Verify(token string) (sessionID, userID string, err error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}
	if len(jws.Signatures) != 1 {
		return "", "", fmt.Errorf("unexpected signatures: %d", len(jws.Signatures))
	}
	kid := jws.Signatures[0].Protected.KeyID
	pub, ok := s.pubKeys[kid]
	if !ok {
		return "", "", fmt.Errorf("unknown kid: %s", kid)
	}
	payload, err := jws.Verify(pub)
	if err != nil {
		return "", "", fmt.Errorf("token verification failed: %w", err)
	}
	var rec tokenRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return "", "", fmt.Errorf("unmarshal token record: %w", err)
	}
	if rec.SessionID == "" {
		return "", "", fmt.Errorf("token record missing session id")
	}
	return rec.SessionID, rec.Subject, nil
}
