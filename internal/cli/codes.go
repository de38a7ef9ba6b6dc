package cli

import "github.com/marcohefti/matchlab/internal/codes"

// Short local aliases for the codes this package reaches for most often,
// mirroring the teacher's error_codes.go codeUsage/codeIO convention.
const (
	codeUsage  = codes.Usage
	codeIO     = codes.IO
	codeResolve = codes.ResolveError
)
