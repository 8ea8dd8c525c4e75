package scrape

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(CodeNavigation, "navigate to search page", nil)
	assert.Equal(t, "NAVIGATION_ERROR: navigate to search page", err.Error())

	err = err.WithCause(errors.New("net::ERR_TUNNEL_CONNECTION_FAILED"))
	assert.Equal(t, "NAVIGATION_ERROR: navigate to search page: net::ERR_TUNNEL_CONNECTION_FAILED", err.Error())
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeNoResults, "no results for %q", "spring day")
	assert.Equal(t, CodeNoResults, err.Code)
	assert.Contains(t, err.Error(), `no results for "spring day"`)
	assert.False(t, err.Timestamp.IsZero())
}

func TestWithDetail(t *testing.T) {
	err := NewError(CodeExtraction, "container not found", nil).
		WithDetail("availableText", "some page text").
		WithDetail("url", "https://example.com")
	assert.Equal(t, "some page text", err.Details["availableText"])
	assert.Equal(t, "https://example.com", err.Details["url"])
}

func TestCodeOfWalksWrapChain(t *testing.T) {
	inner := NewError(CodeTimeout, "results never appeared", nil)
	wrapped := fmt.Errorf("source azlyrics: %w", fmt.Errorf("attempt 2: %w", inner))

	assert.Equal(t, CodeTimeout, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeTimeout))
	assert.False(t, IsCode(wrapped, CodeProxy))
}

func TestCodeOfUnknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain error")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("session died")
	err := NewError(CodeBrowser, "run task", nil).WithCause(cause)
	require.ErrorIs(t, err, cause)
}
