package requestctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestUserID(t *testing.T) {
	id := uuid.New()
	ctx := WithUserID(context.Background(), id)
	assert.Equal(t, id, UserID(ctx))
	assert.Equal(t, uuid.Nil, UserID(context.Background()))
}
