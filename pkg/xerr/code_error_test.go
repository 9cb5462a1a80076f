package xerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindCode(t *testing.T) {
	cases := map[Kind]int{
		KindNone:             OK,
		KindValidation:       BadRequest,
		KindNotFound:         NotFound,
		KindConflict:         Conflict,
		KindStoreUnavailable: ServiceUnavailable,
		KindPartialFailure:   InternalServerError,
	}
	for kind, code := range cases {
		assert.Equal(t, code, kind.Code(), "kind=%q", kind)
	}
}

func TestWrap_UnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("metadata: %w", Wrap(KindStoreUnavailable, "metadata store unreachable", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStoreUnavailable, KindOf(err))
	assert.Contains(t, err.Error(), "dial tcp: refused")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindStoreUnavailable, KindOf(errors.New("boom")))
	assert.Equal(t, KindStoreUnavailable, KindOf(New(BadRequest, "no kind")))
	assert.Equal(t, KindConflict, KindOf(Wrap(KindConflict, "dup", nil)))
}
