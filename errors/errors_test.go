package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortalError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeRouterHomeMissing, "router home missing")
	if err.Code != ErrCodeRouterHomeMissing {
		t.Errorf("expected code %s, got %s", ErrCodeRouterHomeMissing, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeCommandFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeRouterHomeMissing) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("path", "/i2p").WithDetail("pid", 42)
	if detailed.Details["path"] != "/i2p" {
		t.Error("WithDetail should add details")
	}
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := CommandNotFound("firefox", fmt.Errorf("not in PATH"))
	outer := fmt.Errorf("startup: %w", inner)

	assert.Equal(t, ErrCodeCommandNotFound, GetCode(outer))
	assert.True(t, Is(outer, ErrCodeCommandNotFound))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))
	assert.False(t, Is(nil, ""))

	found, ok := As(outer)
	assert.True(t, ok)
	assert.Equal(t, "firefox", found.Details["command"])
}

func TestErrorConstructors(t *testing.T) {
	err := PrivDropUnavailable("i2p", []string{"gosu", "su-exec"})
	if err.Code != ErrCodePrivDropUnavailable {
		t.Errorf("expected code %s, got %s", ErrCodePrivDropUnavailable, err.Code)
	}
	assert.Contains(t, err.Error(), "gosu, su-exec")
	assert.Equal(t, "i2p", err.Details["identity"])

	err = AlreadyStarted("router", 4242)
	if err.Details["pid"] != 4242 {
		t.Error("AlreadyStarted should include pid detail")
	}

	err = InvalidSetting("DISPLAY_DEPTH", "deep", fmt.Errorf("not a number"))
	assert.Equal(t, ErrCodeConfigInvalid, err.Code)
	assert.Equal(t, "DISPLAY_DEPTH", err.Details["setting"])
}
