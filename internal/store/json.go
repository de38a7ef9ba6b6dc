package store

import (
	"github.com/marcohefti/matchlab/internal/jsonval"
)

// WriteJSONAtomic canonicalizes v (RFC 8785 JCS via jsonval.Canonicalize)
// and writes it atomically to path. Truth files are canonical JSON, not
// pretty-printed, so byte output is reproducible across tools and reruns.
func WriteJSONAtomic(path string, v jsonval.Value) error {
	canon, err := jsonval.Canonicalize(v)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, []byte(canon+"\n"))
}
