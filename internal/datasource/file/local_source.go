// Package file implements a filesystem-backed data source on top of afero,
// so callers can swap the OS filesystem for an in-memory one in tests.
package file

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Local opens a path on an afero filesystem.
type Local struct {
	fs   afero.Fs
	path string
}

// NewLocal returns a Local bound to path on fs. A nil fs selects the OS
// filesystem.
func NewLocal(fs afero.Fs, path string) *Local {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Local{fs: fs, path: path}
}

// Name returns the configured path.
func (l *Local) Name() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - If ctx is already done, Open returns ctx.Err() without touching the
//     filesystem.
//   - A directory path is rejected.
//   - Filesystem errors are wrapped with the path and still match errors.Is
//     checks such as os.ErrNotExist.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := l.fs.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", l.path)
	}
	return f, nil
}
