package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateKey()
	require.NoError(t, err)

	payload := MatchPayload("m-1", "sha256:aa", "sha256:bb", "1.0.0", "operator")
	r, err := Sign(payload, priv, time.Time{})
	require.NoError(t, err)
	require.Equal(t, Version, r.Version)
	require.Equal(t, Algorithm, r.Algorithm)

	ok, err := Verify(r)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyAgainstKey(r, pub)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_RejectsFlippedByte(t *testing.T) {
	_, priv, err := GenerateKey()
	require.NoError(t, err)

	payload := TournamentPayload("t-1", "sha256:cc", 4, "operator")
	r, err := Sign(payload, priv, time.Now())
	require.NoError(t, err)

	// Flip the first hex char of the signature.
	sig := []byte(r.Signature)
	if sig[0] == '0' {
		sig[0] = '1'
	} else {
		sig[0] = '0'
	}
	r.Signature = string(sig)

	ok, err := Verify(r)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerify_RejectsWrongVersionOrAlgorithm(t *testing.T) {
	_, priv, err := GenerateKey()
	require.NoError(t, err)
	r, err := Sign(MatchPayload("m", "h1", "h2", "v", "i"), priv, time.Time{})
	require.NoError(t, err)

	bad := r
	bad.Version = 2
	_, err = Verify(bad)
	require.Error(t, err)

	bad = r
	bad.Algorithm = "ed448"
	_, err = Verify(bad)
	require.Error(t, err)
}

func TestVerifyAgainstKey_RejectsMismatchedKey(t *testing.T) {
	_, priv, err := GenerateKey()
	require.NoError(t, err)
	otherPub, _, err := GenerateKey()
	require.NoError(t, err)

	r, err := Sign(MatchPayload("m", "h1", "h2", "v", "i"), priv, time.Time{})
	require.NoError(t, err)

	ok, err := VerifyAgainstKey(r, otherPub)
	require.Error(t, err)
	require.False(t, ok)
}

func TestPublicKeySPKIHex_RoundTrip(t *testing.T) {
	pub, _, err := GenerateKey()
	require.NoError(t, err)
	h, err := PublicKeySPKIHex(pub)
	require.NoError(t, err)
	parsed, err := ParsePublicKeySPKIHex(h)
	require.NoError(t, err)
	require.Equal(t, pub, parsed)
}
