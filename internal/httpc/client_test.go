package httpc

import (
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	if got := NewClient(5 * time.Second).Timeout; got != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", got)
	}
	if got := NewClient(0).Timeout; got != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", got, DefaultTimeout)
	}
	if NewClient(time.Second).Transport == nil {
		t.Error("Transport should be set")
	}
}
