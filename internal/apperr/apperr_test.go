package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := NotFound("encounter %s not found", "e-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))

	wrapped := fmt.Errorf("load: %w", Economy("action already used this turn"))
	assert.True(t, errors.Is(wrapped, ErrEconomyViolation))
	assert.Equal(t, CodeEconomyViolation, CodeOf(wrapped))
}

func TestCodeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestGRPCStatusMapping(t *testing.T) {
	cases := map[*Error]codes.Code{
		NotFound("x"):          codes.NotFound,
		Validation("x"):        codes.InvalidArgument,
		Economy("x"):           codes.FailedPrecondition,
		Conflict("x"):          codes.Aborted,
		New(CodeInternal, "x"): codes.Internal,
	}
	for err, want := range cases {
		st, ok := status.FromError(err)
		assert.True(t, ok)
		assert.Equal(t, want, st.Code(), "code %s", err.Code)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "save encounters", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save encounters: disk full", err.Error())
}
