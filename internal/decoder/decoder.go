// Package decoder implements the tolerant agent I/O decoder (spec.md §4.D):
// agents are free-running processes that emit arbitrary text on stdout, and
// the decoder's job is to recover a schema-valid action from that text
// through a fixed, ordered sequence of attempts, recording which one fired
// (or why none did) so the rest of the pipeline can surface it as forensics
// (internal/event's ActionForensics). The structural matching style here —
// ordered rules, each returning a verdict plus a reason — is grounded on the
// teacher's internal/oracle rule evaluator; the bounded-preview/truncation
// discipline is grounded on internal/trace's capStringBytes.
package decoder

import (
	"sort"
	"strings"

	"github.com/marcohefti/matchlab/internal/hashing"
	"github.com/marcohefti/matchlab/internal/jsonval"
)

// Method identifies which of the four attempt stages produced the result.
type Method string

const (
	MethodDirectJSON   Method = "direct_json"
	MethodFencedJSON   Method = "fenced_json"
	MethodBraceExtract Method = "brace_extract"
	MethodUnwrapped    Method = "unwrapped"
)

// FallbackReason is the closed set of reasons the decoder exhausted every
// attempt without a schema-valid value (spec.md §4.D).
const (
	FallbackNoJSONFound            = "no-json-found"
	FallbackSchemaValidationFailed = "schema-validation-failed"
	FallbackNormalizationFailed    = "normalization-failed"
)

// WarnBraceDepthExceeded is attached when a brace-extract candidate was
// abandoned because it nested past Options.MaxBraceDepth.
const WarnBraceDepthExceeded = "brace_depth_exceeded"

// WarnScanBoundExceeded is attached when the raw text was truncated to
// Options.MaxScanBytes before extraction was attempted.
const WarnScanBoundExceeded = "scan_bound_exceeded"

// DefaultMaxBraceDepth and DefaultMaxScanBytes bound the brace-extraction
// stage's worst case: pathologically nested or huge agent output must not
// make decoding unbounded work. Generalizes the teacher's
// schema.PreviewMaxBytesV1-style bound constants.
const (
	DefaultMaxBraceDepth = 64
	DefaultMaxScanBytes  = 1 << 18 // 256 KiB
)

// Options configures the decoder's bounds. A zero Options uses the
// defaults.
type Options struct {
	MaxBraceDepth int
	MaxScanBytes  int
}

func (o Options) normalized() Options {
	if o.MaxBraceDepth <= 0 {
		o.MaxBraceDepth = DefaultMaxBraceDepth
	}
	if o.MaxScanBytes <= 0 {
		o.MaxScanBytes = DefaultMaxScanBytes
	}
	return o
}

// Validator lets a scenario impose its own action shape on top of the
// generic decode stages: Decode never knows what a valid action looks like
// for numberguess versus heist, the scenario does. Validate may return a
// normalized form of v (e.g. coercing a string into canonical case); a
// non-nil error means v does not parse under the scenario's schema.
type Validator interface {
	Validate(v jsonval.Value) (jsonval.Value, error)
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(v jsonval.Value) (jsonval.Value, error)

func (f ValidatorFunc) Validate(v jsonval.Value) (jsonval.Value, error) { return f(v) }

// Result is the outcome of decoding one raw agent output string, carrying
// every forensic field spec.md §4.D requires on AgentRawOutput/
// ActionAdjudicated.
type Result struct {
	OK              bool
	Value           jsonval.Value // the schema-valid action (OK) or fallback (!OK)
	Method          Method        // empty when !OK
	RawSha256       string        // always populated, even when !OK
	RawBytes        int
	Truncated       bool
	CandidateAction jsonval.Value // best parsed-but-rejected shape, if any
	FallbackReason  string        // populated only when !OK
	Warnings        []string
	Errors          []string
}

// Decode attempts, in order, direct-json, fenced-json, brace-extract, and
// unwrapped, validating each recovered value against schema and returning
// the first one that validates. If none validate, it returns !OK with
// Value=fallback and a FallbackReason. schema may be nil, in which case any
// syntactically recovered JSON value is accepted (used by callers that
// don't impose a scenario-specific shape, e.g. decoder-only tests).
func Decode(raw string, schema Validator, fallback jsonval.Value, opts Options) Result {
	opts = opts.normalized()
	rawSha := "sha256:" + hashing.SHA256Hex([]byte(raw))
	rawBytes := len(raw)

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{
			Value:          fallback,
			RawSha256:      rawSha,
			RawBytes:       rawBytes,
			FallbackReason: FallbackNoJSONFound,
		}
	}

	truncatedScan := false
	scanSource := trimmed
	if len(scanSource) > opts.MaxScanBytes {
		scanSource = scanSource[:opts.MaxScanBytes]
		truncatedScan = true
	}
	var baseWarnings []string
	if truncatedScan {
		baseWarnings = append(baseWarnings, WarnScanBoundExceeded)
	}

	var candidate jsonval.Value
	var validationErr string

	validate := func(v jsonval.Value, method Method, warnings []string) (Result, bool) {
		normalized := v
		var err error
		if schema != nil {
			normalized, err = schema.Validate(v)
		}
		if err != nil {
			if candidate == nil {
				candidate = v
				validationErr = err.Error()
			}
			return Result{}, false
		}
		return Result{
			OK:        true,
			Value:     normalized,
			Method:    method,
			RawSha256: rawSha,
			RawBytes:  rawBytes,
			Truncated: truncatedScan,
			Warnings:  warnings,
		}, true
	}

	var directValue jsonval.Value
	var hasDirectValue bool
	if v, err := jsonval.Parse([]byte(trimmed)); err == nil {
		directValue = v
		hasDirectValue = true
		if res, ok := validate(v, MethodDirectJSON, nil); ok {
			return res
		}
	}

	if body, ok := extractFencedBlock(scanSource); ok {
		if v, err := jsonval.Parse([]byte(body)); err == nil {
			if res, ok := validate(v, MethodFencedJSON, baseWarnings); ok {
				return res
			}
		}
	}

	for _, cand := range extractBalancedCandidates(scanSource, opts.MaxBraceDepth) {
		v, err := jsonval.Parse([]byte(cand.body))
		if err != nil {
			continue
		}
		if res, ok := validate(v, MethodBraceExtract, baseWarnings); ok {
			return res
		}
	}

	if hasDirectValue {
		if obj, ok := directValue.(map[string]any); ok && len(obj) == 1 {
			for _, key := range []string{"action", "response", "result"} {
				inner, present := obj[key]
				if !present {
					continue
				}
				if res, ok := validate(inner, MethodUnwrapped, nil); ok {
					return res
				}
			}
		}
	}

	reason := FallbackNoJSONFound
	var errs []string
	if candidate != nil {
		reason = FallbackSchemaValidationFailed
		errs = []string{validationErr}
	}
	return Result{
		Value:           fallback,
		RawSha256:       rawSha,
		RawBytes:        rawBytes,
		Truncated:       truncatedScan,
		CandidateAction: candidate,
		FallbackReason:  reason,
		Warnings:        baseWarnings,
		Errors:          errs,
	}
}

// extractFencedBlock finds the first fenced code block (``` or ```json) and
// returns its trimmed body.
func extractFencedBlock(s string) (string, bool) {
	const fence = "```"
	start := strings.Index(s, fence)
	if start == -1 {
		return "", false
	}
	rest := s[start+len(fence):]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		// Skip an optional language tag ("json", "JSON", etc.) on the
		// opening fence line.
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, fence)
	if end == -1 {
		return "", false
	}
	body := strings.TrimSpace(rest[:end])
	if body == "" {
		return "", false
	}
	return body, true
}

func isLanguageTag(s string) bool {
	if len(s) > 16 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && r != '-' {
			return false
		}
	}
	return true
}

type balancedCandidate struct {
	body string
	len  int
}

// extractBalancedCandidates scans s for every top-level balanced {...} or
// [...] span, honoring string literals and escapes so braces inside JSON
// string values don't confuse the scan, and returns them ordered longest to
// shortest ("try each from longest outer to shortest", spec.md §4.D). A
// span whose nesting exceeds maxDepth is abandoned entirely rather than
// returned, bounding the scan's worst case against pathological input.
func extractBalancedCandidates(s string, maxDepth int) []balancedCandidate {
	openers := map[byte]byte{'{': '}', '[': ']'}
	var out []balancedCandidate
	for i := 0; i < len(s); i++ {
		closer, ok := openers[s[i]]
		if !ok {
			continue
		}
		end, depthExceeded, found := scanBalanced(s, i, s[i], closer, maxDepth)
		if !found || depthExceeded {
			continue
		}
		body := s[i : end+1]
		out = append(out, balancedCandidate{body: body, len: len(body)})
		i = end // don't rescan nested spans as separate top-level candidates
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].len > out[j].len })
	return out
}

func scanBalanced(s string, start int, open, close byte, maxDepth int) (int, bool, bool) {
	depth := 0
	inString := false
	escaped := false
	depthExceeded := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
			if depth > maxDepth {
				depthExceeded = true
			}
		case close:
			depth--
			if depth == 0 {
				return i, depthExceeded, true
			}
		}
	}
	return 0, depthExceeded, false
}
