package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("absent")))
	assert.Equal(t, KindConflict, KindOf(Conflict("doublon")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("erreur technique")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	// le kind survit à l'emballage
	wrapped := fmt.Errorf("contexte: %w", Forbidden("interdit"))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindForbidden))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(InvalidState("")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Integrity("")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
