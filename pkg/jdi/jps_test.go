package jdi

import "testing"

func TestParseJps(t *testing.T) {
	out := []byte("1234 com.example.Main\n5678 org.apache.catalina.startup.Bootstrap\n91011\nnotapid jdk.jcmd/sun.tools.jps.Jps\n")
	pids := parseJps(out)
	if len(pids) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(pids), pids)
	}
	if pids[1234] != "com.example.Main" {
		t.Errorf("wrong descriptor for 1234: %q", pids[1234])
	}
	if pids[5678] != "org.apache.catalina.startup.Bootstrap" {
		t.Errorf("wrong descriptor for 5678: %q", pids[5678])
	}
	if desc, ok := pids[91011]; !ok || desc != "" {
		t.Errorf("expected empty descriptor for bare pid, got %q ok=%v", desc, ok)
	}
}

func TestBootstrapRegistersConnectors(t *testing.T) {
	before := len(Bootstrap().AttachingConnectors())
	RegisterConnector(fakeConnector{})
	after := Bootstrap().AttachingConnectors()
	if len(after) != before+1 {
		t.Fatalf("expected %d connectors, got %d", before+1, len(after))
	}
	if after[len(after)-1].Name() != "fake" {
		t.Errorf("unexpected connector name %q", after[len(after)-1].Name())
	}
}

type fakeConnector struct{}

func (fakeConnector) Name() string                          { return "fake" }
func (fakeConnector) DefaultArguments() map[string]Argument { return nil }
func (fakeConnector) Attach(map[string]Argument) (VirtualMachine, error) {
	return nil, ErrDisconnected
}
