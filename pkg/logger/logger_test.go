package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "u***@*******.com", SanitizedEmail("user@example.com"))
	assert.Equal(t, "a@*.io", SanitizedEmail("a@b.io"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("Email=user%40example.com"))
	assert.False(t, SanitizeQueryString("limit=20&offset=40"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestAuditLogger_Record(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(New(&buf, "info"))

	subject := "user-123"
	al.Record(context.Background(), "login_failed", &subject, map[string]string{"reason": "invalid_password"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "login_failed", entry["event_type"])
	assert.Equal(t, "user-123", entry["subject_id"])
	assert.Equal(t, "invalid_password", entry["reason"])
}

func TestAuditLogger_RecordWithoutSubject(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(New(&buf, "info"))

	al.Record(context.Background(), "user_registered", nil, nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	_, hasSubject := entry["subject_id"]
	assert.False(t, hasSubject)
}
