package decoder

import (
	"strings"
	"testing"

	"github.com/marcohefti/matchlab/internal/jsonval"
	"github.com/stretchr/testify/require"
)

var guessFallback = map[string]any{"guess": 50.0}

func guessSchema() ValidatorFunc {
	return func(v jsonval.Value) (jsonval.Value, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errRequired
		}
		g, ok := m["guess"].(float64)
		if !ok {
			return nil, errRequired
		}
		return map[string]any{"guess": g}, nil
	}
}

var errRequired = &validationErr{"guess is required"}

type validationErr struct{ msg string }

func (e *validationErr) Error() string { return e.msg }

func TestDecode_DirectJSON(t *testing.T) {
	res := Decode(`{"guess": 42}`, guessSchema(), guessFallback, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodDirectJSON, res.Method)
	require.Equal(t, "", res.FallbackReason)
	m, ok := res.Value.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 42.0, m["guess"])
	require.NotEmpty(t, res.RawSha256)
}

func TestDecode_FencedJSON(t *testing.T) {
	raw := "Let me think about this.\n```json\n{\"guess\": 7}\n```\nThat's my answer."
	res := Decode(raw, guessSchema(), guessFallback, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodFencedJSON, res.Method)
	m, ok := res.Value.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 7.0, m["guess"])
}

func TestDecode_FencedWithoutLanguageTag(t *testing.T) {
	raw := "```\n{\"guess\": 3}\n```"
	res := Decode(raw, guessSchema(), guessFallback, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodFencedJSON, res.Method)
}

func TestDecode_BraceExtract(t *testing.T) {
	raw := `Sure, here's my move: {"guess": 9} hope that works!`
	res := Decode(raw, guessSchema(), guessFallback, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodBraceExtract, res.Method)
	m, ok := res.Value.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 9.0, m["guess"])
}

func TestDecode_BraceExtractIgnoresBracesInStrings(t *testing.T) {
	raw := `prefix {"note": "use { and } carefully", "guess": 11} suffix`
	res := Decode(raw, guessSchema(), guessFallback, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodBraceExtract, res.Method)
	m := res.Value.(map[string]any)
	require.Equal(t, 11.0, m["guess"])
}

func TestDecode_Unwrapped(t *testing.T) {
	raw := `{"action": {"guess": 13}}`
	res := Decode(raw, guessSchema(), guessFallback, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodUnwrapped, res.Method)
	m := res.Value.(map[string]any)
	require.Equal(t, 13.0, m["guess"])
}

func TestDecode_NoSchema_AcceptsFirstParsedValue(t *testing.T) {
	res := Decode(`{"guess": 42}`, nil, nil, Options{})
	require.True(t, res.OK)
	require.Equal(t, MethodDirectJSON, res.Method)
}

func TestDecode_EmptyInput_FallsBackNoJSONFound(t *testing.T) {
	res := Decode("   ", guessSchema(), guessFallback, Options{})
	require.False(t, res.OK)
	require.Equal(t, FallbackNoJSONFound, res.FallbackReason)
	require.Equal(t, guessFallback, res.Value)
	require.NotEmpty(t, res.RawSha256)
}

func TestDecode_GarbageInput_FallsBackNoJSONFound(t *testing.T) {
	res := Decode("garbage response", guessSchema(), guessFallback, Options{})
	require.False(t, res.OK)
	require.Equal(t, FallbackNoJSONFound, res.FallbackReason)
}

func TestDecode_SchemaFailure_FallsBackWithCandidate(t *testing.T) {
	res := Decode(`{"wrong": 1}`, guessSchema(), guessFallback, Options{})
	require.False(t, res.OK)
	require.Equal(t, FallbackSchemaValidationFailed, res.FallbackReason)
	require.Equal(t, map[string]any{"wrong": 1.0}, res.CandidateAction)
	require.NotEmpty(t, res.Errors)
}

func TestDecode_ScanBoundTruncates(t *testing.T) {
	huge := strings.Repeat("x", 100) + `{"guess": 5}`
	res := Decode(huge, guessSchema(), guessFallback, Options{MaxScanBytes: 50})
	require.False(t, res.OK)
	require.True(t, res.Truncated)
	require.Contains(t, res.Warnings, WarnScanBoundExceeded)
}

func TestDecode_MaxBraceDepthRejectsPathologicalNesting(t *testing.T) {
	raw := "prefix " + strings.Repeat("{", 40) + strings.Repeat("}", 40)
	res := Decode(raw, guessSchema(), guessFallback, Options{MaxBraceDepth: 2})
	require.False(t, res.OK)
	require.Equal(t, FallbackNoJSONFound, res.FallbackReason)
}

func TestDecode_AlwaysPopulatesRawSha256(t *testing.T) {
	for _, raw := range []string{"", "garbage", `{"guess": 1}`} {
		res := Decode(raw, guessSchema(), guessFallback, Options{})
		require.NotEmpty(t, res.RawSha256)
	}
}
