package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMatching(t *testing.T) {
	t.Run("errors.Is matches by code regardless of message", func(t *testing.T) {
		err := NewFor(CodeNotHolder, "B1", "caller is not the current holder")
		require.ErrorIs(t, err, New(CodeNotHolder, ""))
		assert.NotErrorIs(t, err, New(CodeNotFound, ""))
	})

	t.Run("HasCode sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("transfer: %w", New(CodeAlreadySpoiled, "batch is spoiled"))
		assert.True(t, HasCode(err, CodeAlreadySpoiled))
		assert.Equal(t, CodeAlreadySpoiled, CodeOf(err))
	})

	t.Run("uncoded errors report internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})
}

func TestErrorCarriesBatchID(t *testing.T) {
	err := NewFor(CodeNotFound, "B-404", "batch does not exist")
	assert.Equal(t, "B-404", BatchIDOf(err))
	assert.Contains(t, err.Error(), "B-404")
	assert.Empty(t, BatchIDOf(New(CodeInternal, "x")))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load batch")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
