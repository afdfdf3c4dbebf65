package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := errors.New("duplicate key")
	err := fmt.Errorf("insert: %w", Wrap(base, KindConflict, "User with this email already exists"))

	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.ErrorIs(t, err, base)

	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "User with this email already exists", ae.Message)
}

func TestUntaggedErrorsAreUnexpected(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindUnexpected, KindOf(err))
	_, ok := As(err)
	assert.False(t, ok)
	assert.False(t, Is(nil, KindUnexpected))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "not_found: User not found", NotFound("User not found").Error())
	assert.Equal(t, "unexpected: list users: boom", Wrap(errors.New("boom"), KindUnexpected, "list users").Error())
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("Validation failed", []FieldError{{Field: "name", Message: "Name is required"}})
	assert.Equal(t, KindValidation, err.Kind)
	assert.Len(t, err.Fields, 1)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:  http.StatusBadRequest,
		KindMalformedID: http.StatusBadRequest,
		KindConflict:    http.StatusConflict,
		KindNotFound:    http.StatusNotFound,
		KindUnexpected:  http.StatusInternalServerError,
		Kind("other"):   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}
