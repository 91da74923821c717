package registry

import (
	"errors"
	"fmt"

	"batchline/internal/docstore"
)

var (
	// ErrNotFound reports an id with no document.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports invalid input, including references to documents
	// that do not exist.
	ErrValidation = errors.New("validation failed")
)

func notFound(c docstore.Collection, id string) error {
	return fmt.Errorf("%s %q: %w", c, id, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// missingReference turns a lookup of a referenced document into a
// validation failure when the document is absent.
func missingReference(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: unknown reference: %w", ErrValidation, err)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
