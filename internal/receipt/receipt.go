// Package receipt implements Ed25519 signing and verification over
// canonical payloads (spec.md §4.H): a match receipt binds logHash and
// manifestHash to an issuer, a tournament receipt binds truthBundleHash
// and matchCount. Go's standard crypto/ed25519 and crypto/x509 are used
// directly — no third-party crypto library is introduced here; see
// DESIGN.md for why stdlib is the idiomatic choice for this one curve.
package receipt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/marcohefti/matchlab/internal/codes"
	"github.com/marcohefti/matchlab/internal/jsonval"
)

const (
	Version   = 1
	Algorithm = "ed25519"
)

// Receipt is the on-disk receipt shape from spec.md §3.
type Receipt struct {
	Version   int           `json:"version"`
	Algorithm string        `json:"algorithm"`
	Payload   jsonval.Value `json:"payload"`
	Signature string        `json:"signature"`
	PublicKey string        `json:"publicKey"`
	SignedAt  string        `json:"signedAt,omitempty"`
}

// ToValue renders r as the jsonval.Value the artifact writer persists.
func (r Receipt) ToValue() jsonval.Value {
	v := map[string]jsonval.Value{
		"version":   float64(r.Version),
		"algorithm": r.Algorithm,
		"payload":   r.Payload,
		"signature": r.Signature,
		"publicKey": r.PublicKey,
	}
	if r.SignedAt != "" {
		v["signedAt"] = r.SignedAt
	}
	return v
}

// FromValue parses a jsonval.Value (as read back from receipt.json) into a
// Receipt. It does not validate the payload shape, only the receipt
// envelope's own field types.
func FromValue(v jsonval.Value) (Receipt, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Receipt{}, fmt.Errorf("%s: receipt is not an object", codes.StructuralError)
	}
	r := Receipt{}
	if ver, ok := m["version"].(float64); ok {
		r.Version = int(ver)
	}
	r.Algorithm, _ = m["algorithm"].(string)
	r.Payload = m["payload"]
	r.Signature, _ = m["signature"].(string)
	r.PublicKey, _ = m["publicKey"].(string)
	r.SignedAt, _ = m["signedAt"].(string)
	return r, nil
}

// MatchPayload builds the canonical match-receipt payload (spec.md §3).
func MatchPayload(matchID, logHash, manifestHash, runnerVersion, issuedBy string) jsonval.Value {
	return map[string]jsonval.Value{
		"matchId":       matchID,
		"logHash":       logHash,
		"manifestHash":  manifestHash,
		"runnerVersion": runnerVersion,
		"issuedBy":      issuedBy,
	}
}

// TournamentPayload builds the canonical tournament-receipt payload
// (spec.md §3).
func TournamentPayload(tournamentID, truthBundleHash string, matchCount int, issuedBy string) jsonval.Value {
	return map[string]jsonval.Value{
		"tournamentId":    tournamentID,
		"truthBundleHash": truthBundleHash,
		"matchCount":      float64(matchCount),
		"issuedBy":        issuedBy,
	}
}

// GenerateKey returns a fresh Ed25519 key pair. Used by tests;
// sign-tournament always loads its key from --key and never generates one.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// PublicKeySPKIHex returns the hex encoding of pub's SPKI-DER export, the
// form spec.md §4.H requires receipt.publicKey to carry.
func PublicKeySPKIHex(pub ed25519.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(der), nil
}

// ParsePublicKeySPKIHex is the inverse of PublicKeySPKIHex.
func ParsePublicKeySPKIHex(h string) (ed25519.PublicKey, error) {
	der, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%s: publicKey is not valid hex: %w", codes.SignatureInvalid, err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%s: publicKey is not a valid SPKI-DER key: %w", codes.SignatureInvalid, err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: publicKey is not an ed25519 key", codes.SignatureInvalid)
	}
	return edPub, nil
}

// LoadPrivateKeyPEM parses a PKCS8-encoded Ed25519 private key from PEM
// bytes, the shape `openssl genpkey -algorithm ed25519` produces.
func LoadPrivateKeyPEM(pemBytes []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found in key file", codes.Usage)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: not a valid PKCS8 private key: %w", codes.Usage, err)
	}
	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: key is not ed25519", codes.Usage)
	}
	return edKey, nil
}

// LoadPublicKeyPEM parses an SPKI-DER-in-PEM Ed25519 public key.
func LoadPublicKeyPEM(pemBytes []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block found in key file", codes.Usage)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: not a valid SPKI-DER public key: %w", codes.Usage, err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: key is not ed25519", codes.Usage)
	}
	return edPub, nil
}

// Sign canonicalizes payload, signs it with priv, and returns the full
// Receipt envelope (spec.md §4.H's sign_match_receipt/sign_tournament
// shape, generalized to one payload-agnostic function).
func Sign(payload jsonval.Value, priv ed25519.PrivateKey, signedAt time.Time) (Receipt, error) {
	canon, err := jsonval.Canonicalize(payload)
	if err != nil {
		return Receipt{}, err
	}
	sig := ed25519.Sign(priv, []byte(canon))
	pubHex, err := PublicKeySPKIHex(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return Receipt{}, err
	}
	r := Receipt{
		Version:   Version,
		Algorithm: Algorithm,
		Payload:   payload,
		Signature: hex.EncodeToString(sig),
		PublicKey: pubHex,
	}
	if !signedAt.IsZero() {
		r.SignedAt = signedAt.UTC().Format(time.RFC3339Nano)
	}
	return r, nil
}

// Verify recomputes the canonical payload bytes and checks signature
// against the embedded publicKey. It does not check the payload's hashes
// against the filesystem; callers needing that cross-check use
// internal/verify, which calls this first.
func Verify(r Receipt) (bool, error) {
	if r.Version != Version {
		return false, fmt.Errorf("%s: unsupported receipt version %d", codes.SignatureInvalid, r.Version)
	}
	if r.Algorithm != Algorithm {
		return false, fmt.Errorf("%s: unsupported algorithm %q", codes.SignatureInvalid, r.Algorithm)
	}
	pub, err := ParsePublicKeySPKIHex(r.PublicKey)
	if err != nil {
		return false, err
	}
	return verifySig(r, pub)
}

// VerifyAgainstKey additionally requires r.PublicKey equal the SPKI-DER hex
// of pub (spec.md §4.H's verify_receipt_against_key).
func VerifyAgainstKey(r Receipt, pub ed25519.PublicKey) (bool, error) {
	wantHex, err := PublicKeySPKIHex(pub)
	if err != nil {
		return false, err
	}
	if r.PublicKey != wantHex {
		return false, fmt.Errorf("%s: receipt publicKey does not match supplied key", codes.SignatureInvalid)
	}
	return Verify(r)
}

func verifySig(r Receipt, pub ed25519.PublicKey) (bool, error) {
	canon, err := jsonval.Canonicalize(r.Payload)
	if err != nil {
		return false, err
	}
	sig, err := hex.DecodeString(r.Signature)
	if err != nil {
		return false, fmt.Errorf("%s: signature is not valid hex: %w", codes.SignatureInvalid, err)
	}
	return ed25519.Verify(pub, []byte(canon), sig), nil
}
