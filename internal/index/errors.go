package index

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrIndexClosed is returned by any operation other than Open on a
	// closed index, including an iteration that observes a close.
	ErrIndexClosed = errors.New("index closed")

	// ErrIllegalState is returned for lifecycle misuse such as deleting an
	// open index.
	ErrIllegalState = errors.New("illegal index state")

	// ErrIndexStorage marks failures of the underlying index storage.
	ErrIndexStorage = errors.New("index storage error")

	// ErrUnknownIndex is returned when a registry lookup finds no index.
	ErrUnknownIndex = errors.New("unknown index")
)

// StorageError wraps a backend failure with the index and operation that
// observed it.
type StorageError struct {
	Index string
	Op    string
	Err   error
}

func (e *StorageError) Error() string {
	return "index " + e.Index + ": " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIndexStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrIndexStorage }

// storageErr wraps err as a StorageError unless it is nil or already a
// lifecycle error raised by this package.
func storageErr(index, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIndexClosed) || errors.Is(err, ErrIllegalState) {
		return err
	}
	return errors.WithStack(&StorageError{Index: index, Op: op, Err: err})
}

// IsClosed reports whether err is (or wraps) ErrIndexClosed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrIndexClosed)
}
