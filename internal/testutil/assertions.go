package testutil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DecodeJSON decodes the recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "failed to unmarshal response: %s", rec.Body.String())
}

// AssertError verifies an error response with the expected status whose
// "error" field contains msg.
func AssertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, "unexpected status code: %s", rec.Body.String())
	var body struct {
		Error string `json:"error"`
	}
	DecodeJSON(t, rec, &body)
	assert.Contains(t, body.Error, msg, "error message mismatch")
}
