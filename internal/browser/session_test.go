package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lyricscout/lyricscout/internal/proxy"
)

func TestOptionsApplyDefaults(t *testing.T) {
	opts := Options{Proxy: proxy.Endpoint{Host: "h", Port: 1}}
	opts.applyDefaults()

	assert.Equal(t, 60*time.Second, opts.OpTimeout)
	assert.Equal(t, 60*time.Second, opts.NavTimeout)
	assert.NotEmpty(t, opts.UserAgent)
}

func TestOptionsKeepExplicitValues(t *testing.T) {
	opts := Options{
		UserAgent:  "custom-agent",
		OpTimeout:  time.Second,
		NavTimeout: 2 * time.Second,
	}
	opts.applyDefaults()

	assert.Equal(t, "custom-agent", opts.UserAgent)
	assert.Equal(t, time.Second, opts.OpTimeout)
	assert.Equal(t, 2*time.Second, opts.NavTimeout)
}

func TestForwardCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()

	cancelParent()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context not canceled after parent")
	}
}

func TestForwardCancelStop(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	stop()
	cancelParent()

	select {
	case <-child.Done():
		t.Fatal("child canceled after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNilParentForwardCancel(t *testing.T) {
	stop := forwardCancel(nil, func() {})
	stop()
}
