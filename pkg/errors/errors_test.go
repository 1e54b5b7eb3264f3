package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodesAndStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Conversation", nil), "NOT_FOUND", http.StatusNotFound},
		{"bad request", BadRequest("nope", nil), "BAD_REQUEST", http.StatusBadRequest},
		{"unauthorized", Unauthorized("who are you", nil), "UNAUTHORIZED", http.StatusUnauthorized},
		{"forbidden", Forbidden("not yours", nil), "FORBIDDEN", http.StatusForbidden},
		{"internal", Internal("boom", nil), "INTERNAL_ERROR", http.StatusInternalServerError},
		{"invalid participants", InvalidParticipants("need two"), "INVALID_PARTICIPANTS", http.StatusBadRequest},
		{"not participant", NotParticipant("alice", "conv-1"), "NOT_PARTICIPANT", http.StatusForbidden},
		{"invalid metadata", InvalidMetadata("missing offer"), "INVALID_METADATA", http.StatusBadRequest},
		{"store unavailable", StoreUnavailable("firestore down", nil), "STORE_UNAVAILABLE", http.StatusServiceUnavailable},
		{"conflict retry exhausted", ConflictRetryExhausted("gave up", nil), "CONFLICT_RETRY_EXHAUSTED", http.StatusConflict},
		{"too many requests", TooManyRequests("slow down"), "TOO_MANY_REQUESTS", http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.Status)
			assert.True(t, Is(tc.err, tc.code))
		})
	}
}

func TestNotParticipantMessage(t *testing.T) {
	err := NotParticipant("alice", "conv-1")
	assert.Contains(t, err.Message, "alice")
	assert.Contains(t, err.Message, "conv-1")
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	base := NotFound("Message", nil)
	wrapped := fmt.Errorf("loading history: %w", base)

	assert.True(t, Is(wrapped, "NOT_FOUND"))
	assert.False(t, Is(wrapped, "FORBIDDEN"))
	assert.False(t, Is(stderrors.New("plain"), "NOT_FOUND"))
	assert.False(t, Is(nil, "NOT_FOUND"))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := StoreUnavailable("firestore unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "STORE_UNAVAILABLE: firestore unreachable", err.Error())
}
