package store

import (
	"os"
	"path/filepath"

	"github.com/marcohefti/matchlab/internal/jsonval"
)

// AppendJSONL canonicalizes v and appends it as one line to path, creating
// the file (and its parent directory) if needed.
func AppendJSONL(path string, v jsonval.Value) error {
	canon, err := jsonval.Canonicalize(v)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.WriteString(canon + "\n")
	return err
}
