package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestSetDebugLogger(t *testing.T) {
	original := Debugf
	defer func() { Debugf = original }()

	var got string
	SetDebugLogger(func(format string, v ...interface{}) {
		got = format
	})
	Debugf("stimulus %s skipped", "ephys")
	if got != "stimulus %s skipped" {
		t.Errorf("debug logger received %q", got)
	}

	SetDebugLogger(nil)
	got = ""
	Debugf("muted")
	if got != "" {
		t.Error("muted debug logger should not forward messages")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()
	Logf("default logger %d", 1)
}

func TestConfigure(t *testing.T) {
	origLog, origDebug := Logf, Debugf
	defer func() { Logf, Debugf = origLog, origDebug }()

	l, err := Configure("debug")
	if err != nil {
		t.Fatalf("Configure(debug) error: %v", err)
	}
	if l == nil {
		t.Fatal("Configure returned nil logger")
	}
	Debugf("visible at debug level")

	if _, err := Configure("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
