package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v2"
)

func TestCreateDefaultConfigReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	f, err := createDefaultConfig(path)
	if err != nil {
		t.Fatalf("createDefaultConfig: %v", err)
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("default config reads back empty")
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	radius := 5
	in := Config{
		Aliases:             map[string][]string{"attach": {"att"}},
		SourceListLineColor: 34,
		ContextRadius:       &radius,
		CloseOnDetach:       true,
	}
	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Config
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.SourceListLineColor != 34 || !out.CloseOnDetach {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.ContextRadius == nil || *out.ContextRadius != 5 {
		t.Errorf("context radius not preserved: %+v", out.ContextRadius)
	}
	if len(out.Aliases["attach"]) != 1 || out.Aliases["attach"][0] != "att" {
		t.Errorf("aliases not preserved: %v", out.Aliases)
	}
}

func TestRadiusDefault(t *testing.T) {
	var c *Config
	if c.Radius() != 3 {
		t.Errorf("expected default radius 3 on nil config, got %d", c.Radius())
	}
	c = &Config{}
	if c.Radius() != 3 {
		t.Errorf("expected default radius 3, got %d", c.Radius())
	}
	r := 1
	c.ContextRadius = &r
	if c.Radius() != 1 {
		t.Errorf("expected radius 1, got %d", c.Radius())
	}
}
