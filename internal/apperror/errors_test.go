package apperror

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := pkgerrors.Wrap(NotFound("product"), "approve request")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "product not found", MessageOf(err))
}

func TestTransientKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Transient(cause, "database unavailable")

	assert.True(t, errors.Is(err, ErrTransient))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "database unavailable: dial tcp: connection refused", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Empty(t, MessageOf(errors.New("boom")))
}

func TestSentinelDoesNotMatchOtherInstances(t *testing.T) {
	a := Conflict("email already registered")
	assert.True(t, errors.Is(a, ErrConflict))
	assert.False(t, errors.Is(ErrConflict, a))
}
