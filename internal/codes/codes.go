// Package codes is the closed registry of error/warning codes shared by the
// CLI, match runner, artifact writer, and bundle verifier. It follows the
// teacher's "a Kind enum maps to a stable string code, never the reverse"
// discipline (internal/native/errors.go, internal/cli/error_codes.go) so
// that adding a new failure mode can never silently reuse an existing code.
package codes

const (
	// Usage and I/O.
	Usage = "ZML_E_USAGE"
	IO    = "ZML_E_IO"

	// §7 error kinds.
	InvalidJSON       = "ZML_E_INVALID_JSON"
	ParseError        = "ZML_E_PARSE"
	ResolveError      = "ZML_E_RESOLVE"
	TimeoutError      = "ZML_E_TIMEOUT"
	ForfeitError      = "ZML_E_FORFEIT"
	AgentRuntimeError = "ZML_E_AGENT_RUNTIME"
	DecodeError       = "ZML_E_DECODE"
	StructuralError   = "ZML_E_STRUCTURAL"
	HashMismatch      = "ZML_E_HASH_MISMATCH"
	SignatureInvalid  = "ZML_E_SIGNATURE_INVALID"
	SetupFailed       = "ZML_E_SETUP_FAILED"

	// Warnings (non-fatal, recorded on CheckResult.Warnings).
	WarnUnreferencedDir       = "ZML_W_UNREFERENCED_DIR"
	WarnBroadcastFileMissing  = "ZML_W_BROADCAST_FILE_MISSING"
	WarnTruthClassMismatch    = "ZML_W_TRUTH_CLASS_MISMATCH"
	WarnSignatureAbsent       = "ZML_W_SIGNATURE_ABSENT"
	WarnOlderProducerField    = "ZML_W_OLDER_PRODUCER_FIELD"
	WarnDecoderFallback       = "ZML_W_DECODER_FALLBACK"
	WarnEnrichmentTruncated   = "ZML_W_ENRICHMENT_TRUNCATED"
)
