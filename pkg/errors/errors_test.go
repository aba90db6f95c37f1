package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCrawlerErrorMessage(t *testing.T) {
	err := NewNavigation("slickdeals", "click next", errors.New("node detached"))
	assert.Equal(t, "[navigation] slickdeals: click next - node detached", err.Error())

	plain := NewValidation("slickdeals", "missing item selector")
	assert.Equal(t, "[validation] slickdeals: missing item selector", plain.Error())
}

func TestRetryable(t *testing.T) {
	assert.True(t, NewNavigation("p", "click", nil).IsRetryable())
	assert.True(t, NewTimeout("p", 3*time.Second, context.DeadlineExceeded).IsRetryable())
	assert.False(t, NewSession("p", "browser gone", nil).IsRetryable())
	assert.False(t, NewPublisher("p", "xadd", nil).IsRetryable())
}

func TestChainInspection(t *testing.T) {
	inner := NewTimeout("p", time.Second, context.DeadlineExceeded)
	wrapped := fmt.Errorf("advance: %w", inner)

	typ, ok := TypeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeTimeout, typ)
	assert.True(t, IsRetryable(wrapped))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)

	_, ok = TypeOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsRetryable(errors.New("plain")))
}
