package requestid

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		ids[New()] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestWithID_and_FromContext_Roundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "req-123")
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-123", id)
}

func TestFromContext_Missing(t *testing.T) {
	id, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestFromContext_EmptyString(t *testing.T) {
	ctx := WithID(context.Background(), "")
	id, ok := FromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestHandler_InjectsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithID(context.Background(), "req-abc")
	logger.InfoContext(ctx, "hello")

	assert.Contains(t, buf.String(), "request_id=req-abc")
}

func TestHandler_NoIDNoAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "hello")

	assert.NotContains(t, buf.String(), "request_id")
}
