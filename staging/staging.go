package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrStaging is returned when upload bytes cannot be copied to a temporary file.
var ErrStaging = errors.New("failed to stage upload")

// File is an exclusively owned temporary copy of an upload.
// It can be opened any number of times until Release is called.
type File struct {
	path string
	size int64

	once       sync.Once
	releaseErr error
}

// Stage copies src into a new temporary file under dir. An empty dir uses the
// system temp directory. label identifies the upload in error messages.
func Stage(src io.Reader, dir, label string) (*File, error) {
	tmp, err := os.CreateTemp(dir, "cms.*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w [%s]: %w", ErrStaging, label, err)
	}

	size, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("%w [%s]: %w", ErrStaging, label, err)
	}

	return &File{path: tmp.Name(), size: size}, nil
}

// Open returns a new reader positioned at the start of the staged bytes.
func (f *File) Open() (*os.File, error) {
	return os.Open(f.path)
}

// Size returns the number of bytes staged.
func (f *File) Size() int64 {
	return f.size
}

// Name returns the temporary file path.
func (f *File) Name() string {
	return f.path
}

// Release deletes the temporary file. Only the first call has an effect.
func (f *File) Release() error {
	f.once.Do(func() {
		err := os.Remove(f.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			f.releaseErr = err
		}
	})
	return f.releaseErr
}
