package repository

import (
	"errors"
	"fmt"

	"coursenotify/internal/domain"

	"gorm.io/gorm"
)

// ErrStaleRecord is returned when an optimistic update lost the race against a concurrent writer.
var ErrStaleRecord = errors.New("record was modified concurrently")

// notFound translates gorm's not-found into the domain error.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}
