package nav

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("site %d not found", 9)))
	assert.True(t, IsConflict(Conflictf("name taken")))
	assert.True(t, IsValidation(Validationf("bad url")))
	assert.Equal(t, KindTransientStore, KindOf(TransientStore("db down", errors.New("refused"))))
	assert.Equal(t, KindAggregation, KindOf(AggregationFailure("rollup failed", errors.New("x"))))

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("listing sites: %w", NotFoundf("site 9 not found"))
	assert.True(t, IsNotFound(err))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := TransientStore("database unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transient_store")
	assert.Contains(t, err.Error(), "connection refused")

	// No cause: the message stands alone.
	assert.Equal(t, "not_found: gone", NotFoundf("gone").Error())
}
