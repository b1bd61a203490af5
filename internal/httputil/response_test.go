package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orders/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, recorder
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input"},
		{"ambiguous payload", apperrors.ErrAmbiguousPayload, http.StatusBadRequest, "ambiguous_payload"},
		{"malformed envelope", apperrors.ErrMalformedEnvelope, http.StatusBadRequest, "malformed_envelope"},
		{"unknown error", assert.AnError, http.StatusInternalServerError, "internal_error"},
		{
			"wrapped domain error",
			apperrors.Wrap(apperrors.ErrNotFound, "loading order"),
			http.StatusNotFound,
			"not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, recorder := newTestContext(t)

			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedStatus, recorder.Code)

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, recorder := newTestContext(t)

		HandleErrorGin(c, nil, nil)

		assert.Empty(t, recorder.Body.String())
	})
}

func TestHandleBadRequestGin(t *testing.T) {
	c, recorder := newTestContext(t)

	HandleBadRequestGin(c, assert.AnError, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "bad_request", response.Error)
}

func TestHandleValidationErrorGin(t *testing.T) {
	c, recorder := newTestContext(t)

	HandleValidationErrorGin(c, assert.AnError, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "validation_error", response.Error)
}
