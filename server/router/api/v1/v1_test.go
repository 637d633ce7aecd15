package v1

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/parlor/ai"
	"github.com/averill/parlor/server/chat"
	"github.com/averill/parlor/store"
)

func TestToHTTPErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{
			"validation",
			errors.Wrap(chat.ErrValidation, "message content or file attachment is required"),
			http.StatusBadRequest,
			"message content or file attachment is required",
		},
		{
			"not found",
			errors.Wrapf(store.ErrNotFound, "conversation %s", "abc123"),
			http.StatusNotFound,
			"conversation abc123",
		},
		{
			"forbidden",
			errors.Wrap(chat.ErrForbidden, "cannot edit AI responses"),
			http.StatusForbidden,
			"cannot edit AI responses",
		},
		{
			"completion failure",
			errors.Wrap(ai.ErrService, "chat completion: connection refused"),
			http.StatusBadGateway,
			"AI service request failed",
		},
		{
			"unexpected",
			errors.New("disk full"),
			http.StatusInternalServerError,
			"internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var httpErr *echo.HTTPError
			require.ErrorAs(t, toHTTPError(tt.err), &httpErr)
			assert.Equal(t, tt.code, httpErr.Code)
			assert.Equal(t, tt.message, httpErr.Message)
		})
	}
}

// Clients must never see the internal sentinel text behind a wrapped error.
func TestRootMessageStripsSentinel(t *testing.T) {
	err := errors.Wrap(chat.ErrValidation, "new message content is required")
	assert.Equal(t, "new message content is required", rootMessage(err))
	assert.NotContains(t, rootMessage(err), chat.ErrValidation.Error())

	// A bare sentinel passes through unchanged.
	assert.Equal(t, store.ErrNotFound.Error(), rootMessage(store.ErrNotFound))
}
