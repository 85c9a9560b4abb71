package ctxdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	_, ok := GetTraceID(context.Background())
	assert.False(t, ok)

	ctx := WithTraceID(context.Background(), "trace-1")
	got, ok := GetTraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "trace-1", got)
}

func TestAccountID(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, ok := GetAccountID(context.Background())
		assert.False(t, ok)
	})

	t.Run("Empty", func(t *testing.T) {
		_, ok := GetAccountID(WithAccountID(context.Background(), ""))
		assert.False(t, ok)
	})

	t.Run("Present", func(t *testing.T) {
		got, ok := GetAccountID(WithAccountID(context.Background(), "acc-1"))
		assert.True(t, ok)
		assert.Equal(t, "acc-1", got)
	})
}
