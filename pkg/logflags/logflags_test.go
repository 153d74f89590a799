package logflags

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func resetFlags() {
	session = false
	listener = false
	wire = false
	terminal = false
}

func TestSetupParsesLayers(t *testing.T) {
	defer resetFlags()
	err := Setup(true, "session,wire", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Session() || !Wire() {
		t.Fatalf("expected session and wire logging enabled, got session=%v wire=%v", Session(), Wire())
	}
	if Listener() || Terminal() {
		t.Fatalf("expected listener and terminal logging disabled, got listener=%v terminal=%v", Listener(), Terminal())
	}
}

func TestSetupDefaultsToSession(t *testing.T) {
	defer resetFlags()
	err := Setup(true, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Session() {
		t.Fatalf("expected session logging enabled by default")
	}
}

func TestSetupOutputWithoutLog(t *testing.T) {
	defer resetFlags()
	err := Setup(false, "session", "")
	if err == nil {
		t.Fatalf("expected error for --log-output without --log")
	}
}

func TestMakeLoggerLevels(t *testing.T) {
	on := makeLogger(true, logrus.Fields{"layer": "test"})
	if on.Logger.Level != logrus.DebugLevel {
		t.Errorf("expected DebugLevel for enabled logger, got %v", on.Logger.Level)
	}
	off := makeLogger(false, logrus.Fields{"layer": "test"})
	if off.Logger.Level != logrus.ErrorLevel {
		t.Errorf("expected ErrorLevel for disabled logger, got %v", off.Logger.Level)
	}
	if on.Data["layer"] != "test" {
		t.Errorf("expected layer field to be set, got %v", on.Data)
	}
}
