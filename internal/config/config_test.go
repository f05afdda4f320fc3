package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("empty config should parse: %v", err)
	}
	if cfg.InboundACL != "outside_access_in" {
		t.Errorf("inbound ACL default = %q", cfg.InboundACL)
	}
	if cfg.Output.Format != "table" || cfg.Logging.Level != "INFO" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte("inbound_acl: outside_in\nfilter: 'Web*'\noutput:\n  format: csv\n  file: out.csv\nlogging:\n  level: DEBUG\n")
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.InboundACL != "outside_in" || cfg.Filter != "Web*" {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if cfg.Output.Format != "csv" || cfg.Output.File != "out.csv" {
		t.Errorf("output config lost: %+v", cfg.Output)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("logging config lost: %+v", cfg.Logging)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	if _, err := Parse([]byte("output:\n  format: xml\n")); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := Parse([]byte("logging:\n  level: TRACE\n")); err == nil {
		t.Error("expected error for unknown log level")
	}
	if _, err := Parse([]byte(":::")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analyzer.yaml")
	if err := os.WriteFile(path, []byte("inbound_acl: from_internet\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.InboundACL != "from_internet" {
		t.Errorf("loaded config wrong: %+v", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
