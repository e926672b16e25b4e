package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPhoneNeverLogsRawNumber(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug")

	logger.Info("payment initiated", Phone("0706050403"))

	out := buf.String()
	if strings.Contains(out, "0706050403") {
		t.Fatalf("raw phone leaked into log: %s", out)
	}
	if !strings.Contains(out, Fingerprint("0706050403")) {
		t.Fatalf("expected fingerprint in log: %s", out)
	}
}

func TestFingerprintIgnoresWhitespace(t *testing.T) {
	if Fingerprint(" 07 06 05 04 03 ") != Fingerprint("0706050403") {
		t.Fatal("expected whitespace-insensitive fingerprint")
	}
	if Fingerprint("   ") != "" {
		t.Fatal("expected empty fingerprint for blank input")
	}
	if len(Fingerprint("0706050403")) != 12 {
		t.Fatalf("expected 12 hex chars, got %q", Fingerprint("0706050403"))
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "verbose")

	logger.Debug("hidden")
	logger.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatal("debug output should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatal("expected info output")
	}
}
