package carestore

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	cs, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cs.Close()

	if cs.Port() != 0 {
		t.Errorf("Port() = %d, want 0", cs.Port())
	}
	if cs.flushInterval != defaultFlushInterval {
		t.Errorf("flushInterval = %v, want %v", cs.flushInterval, defaultFlushInterval)
	}
	if cs.persisting() {
		t.Error("persisting() = true without a snapshot path")
	}
	if cs.Appointments() == nil || cs.Profiles() == nil || cs.Training() == nil {
		t.Error("stores should be created by New")
	}
}

func TestOptions_Validation(t *testing.T) {
	tests := []struct {
		name        string
		opt         Option
		wantErrLike string
	}{
		{"port zero", WithPort(0), "port must be between"},
		{"port negative", WithPort(-1), "port must be between"},
		{"port too large", WithPort(65536), "port must be between"},
		{"empty snapshot path", WithSnapshotPath(""), "snapshot path cannot be empty"},
		{"zero flush interval", WithFlushInterval(0), "flush interval must be positive"},
		{"negative flush interval", WithFlushInterval(-time.Second), "flush interval must be positive"},
		{"nil logger", WithLogger(nil), "logger cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			if err == nil {
				t.Fatal("New() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("New() error = %v, want error containing %q", err, tt.wantErrLike)
			}
		})
	}
}

func TestOptions_Applied(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cs, err := New(
		WithPort(9000),
		WithFlushInterval(time.Second),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cs.Port() != 9000 {
		t.Errorf("Port() = %d, want 9000", cs.Port())
	}
	if cs.flushInterval != time.Second {
		t.Errorf("flushInterval = %v, want 1s", cs.flushInterval)
	}
	if cs.logger != logger {
		t.Error("custom logger not applied")
	}
}

func TestWithChangeCallback_NilIgnored(t *testing.T) {
	cs, err := New(WithChangeCallback(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(cs.changeCallbacks) != 0 {
		t.Errorf("len(changeCallbacks) = %d, want 0", len(cs.changeCallbacks))
	}

	// no subscribers were registered for the ignored callback
	if n := cs.Profiles().Entities().Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}
