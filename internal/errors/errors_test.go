package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	base := New(ErrPostNotFound, "post not found")
	wrapped := fmt.Errorf("load: %w", base)

	assert.Equal(t, ErrPostNotFound, CodeOf(base))
	assert.Equal(t, ErrPostNotFound, CodeOf(wrapped))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
	assert.True(t, Is(wrapped, ErrPostNotFound))
	assert.False(t, Is(nil, ErrPostNotFound))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(ErrResourceNotFound))
	assert.Equal(t, http.StatusForbidden, StatusOf(ErrForbidden))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(ErrorCode(9999)))
}

func TestErrorString(t *testing.T) {
	err := Wrap(ErrDatabase, "insert post", fmt.Errorf("deadlock"))
	assert.Equal(t, "[1001] insert post: deadlock", err.Error())
	assert.Equal(t, "[3002] missing", New(ErrResourceNotFound, "missing").Error())
}

func TestFieldOf(t *testing.T) {
	err := fmt.Errorf("create post: %w", Invalid("group", "unknown group"))

	fe, ok := FieldOf(err)
	assert.True(t, ok)
	assert.Equal(t, "group", fe.Field)
	assert.Equal(t, "unknown group", fe.Message)
	assert.True(t, Is(err, ErrValidation))

	_, ok = FieldOf(New(ErrForbidden, "nope"))
	assert.False(t, ok)
}
