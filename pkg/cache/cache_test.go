package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOp_AlwaysMisses(t *testing.T) {
	c := NewNoOp()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Available())
}

func TestNew_EmptyURLReturnsNoOp(t *testing.T) {
	c := New(context.Background(), "", nil)
	assert.False(t, c.Available())
}

func TestNew_UnreachableURLDegradesToNoOp(t *testing.T) {
	c := New(context.Background(), "redis://127.0.0.1:1/0", nil)
	assert.False(t, c.Available())
}
