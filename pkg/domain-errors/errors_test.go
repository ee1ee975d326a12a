package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_WalksWrapChain(t *testing.T) {
	base := New(CodeConflict, "status changed underneath us")
	wrapped := fmt.Errorf("transition listing: %w", base)

	assert.True(t, HasCode(wrapped, CodeConflict))
	assert.False(t, HasCode(wrapped, CodeNotFound))
}

func TestWrap_NilCauseReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(nil, CodeUpstream, "should vanish"))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUpstream, "checkout call failed")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeUpstream, CodeOf(err))
}

func TestCodeOf_UncodedErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
