package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	err := Errorf(ErrConflict, "property is not available for %s", "June")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "property is not available for June", Message(err))
	assert.Equal(t, ErrConflict, Kind(err))

	wrapped := fmt.Errorf("create booking: %w", err)
	assert.ErrorIs(t, wrapped, ErrConflict)
	assert.Equal(t, "property is not available for June", Message(wrapped))
}

func TestKindUnknown(t *testing.T) {
	err := errors.New("disk full")
	assert.Nil(t, Kind(err))
	assert.Equal(t, "disk full", Message(err))
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("lookup: %w", ErrNotFound)))
}
