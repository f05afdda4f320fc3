package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRules(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "asa.conf")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	if cmd == nil {
		t.Fatal("newRootCmd returned nil")
	}
	if cmd.Use != "asa-analyzer" {
		t.Errorf("Expected use 'asa-analyzer', got '%s'", cmd.Use)
	}
	if len(cmd.Commands()) != 5 {
		t.Errorf("Expected 5 subcommands, got %d", len(cmd.Commands()))
	}
}

func TestSetupLogger(t *testing.T) {
	for _, lvl := range []string{"DEBUG", "INFO", "WARN", "ERROR", "UNKNOWN"} {
		if setupLogger(lvl, "") == nil {
			t.Errorf("setupLogger returned nil for level %s", lvl)
		}
	}

	logFile := filepath.Join(t.TempDir(), "test.log")
	if setupLogger("INFO", logFile) == nil {
		t.Error("setupLogger with file returned nil")
	}
	if setupLogger("INFO", "/nonexistent/path/to/log.log") == nil {
		t.Error("setupLogger should return a logger even if file fails")
	}
}

func TestLoadSnapshotErrors(t *testing.T) {
	if _, err := loadSnapshot("unknown", "", ""); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if _, err := loadSnapshot("asa", "", ""); err == nil {
		t.Error("Expected error for missing rules path")
	}
	if _, err := loadSnapshot("asa", "/nonexistent/rules", ""); err == nil {
		t.Error("Expected error for nonexistent rules file")
	}
	if _, err := loadSnapshot("mariadb", "", ""); err == nil {
		t.Error("Expected error for missing mariadb DSN")
	}
	if _, err := loadSnapshot("mariadb", "", "invalid-dsn"); err == nil {
		t.Error("Expected error for invalid mariadb DSN")
	}
}

func TestRunReachable(t *testing.T) {
	tmpDir := t.TempDir()
	rules := writeRules(t, tmpDir,
		"object network Web01",
		" host 10.1.1.10",
		" nat (inside,outside) static 81.144.153.67",
		"object-group network Anywhere",
		" network-object 0.0.0.0 0.0.0.0",
		"access-list outside_access_in extended permit tcp object-group Anywhere object Web01 eq https",
	)
	outFile := filepath.Join(tmpDir, "reachable.csv")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"reachable",
		"--rules", rules,
		"--format", "csv",
		"--out", outFile,
		"--log-level", "DEBUG",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one record, got %d rows", len(records))
	}
	row := records[1]
	if row[0] != "Web01" || row[1] != "10.1.1.10/32" || row[2] != "81.144.153.67" {
		t.Errorf("addresses wrong: %v", row)
	}
	if row[3] != "object-reference" || row[4] != "tcp" || row[5] != "eq https" || row[6] != "443" {
		t.Errorf("match detail wrong: %v", row)
	}
	if row[7] != "group:Anywhere" || row[8] != "outside_access_in" {
		t.Errorf("entry detail wrong: %v", row)
	}
}

func TestRunReachableCustomACL(t *testing.T) {
	tmpDir := t.TempDir()
	rules := writeRules(t, tmpDir,
		"object network Web01",
		" host 10.1.1.10",
		" nat (inside,outside) static 81.144.153.67",
		"access-list from_internet extended permit tcp any object Web01 eq www",
	)
	outFile := filepath.Join(tmpDir, "reachable.csv")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"reachable",
		"--rules", rules,
		"--inbound-acl", "from_internet",
		"--format", "csv",
		"--out", outFile,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, _ := os.ReadFile(outFile)
	if !strings.Contains(string(data), "from_internet") {
		t.Errorf("expected record from custom ACL, got:\n%s", data)
	}
}

func TestRunAll(t *testing.T) {
	tmpDir := t.TempDir()
	rules := writeRules(t, tmpDir,
		"object network Web01",
		" host 10.1.1.10",
		" nat (inside,outside) static 81.144.153.67",
		"access-list outside_access_in extended permit tcp any object Web01 eq https",
		"access-list VPN-ACL extended permit ip 10.0.0.0 255.255.255.0 172.16.0.0 255.255.0.0",
		"crypto map outside_map 10 set peer 203.0.113.20",
		"crypto map outside_map 10 match address VPN-ACL",
		"crypto map outside_map 10 set ikev1 transform-set ESP-AES-256-SHA",
		"tunnel-group 203.0.113.20 type ipsec-l2l",
	)
	outFile := filepath.Join(tmpDir, "all.csv")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"all",
		"--rules", rules,
		"--format", "csv",
		"--out", outFile,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, section := range []string{"# objects", "# nat", "# vpn", "# reachable"} {
		if !strings.Contains(out, section) {
			t.Errorf("missing section %q in output:\n%s", section, out)
		}
	}
	if !strings.Contains(out, "203.0.113.20") {
		t.Errorf("vpn section missing peer:\n%s", out)
	}
	if !strings.Contains(out, "object-reference") {
		t.Errorf("reachable section missing record:\n%s", out)
	}
}

func TestRunObjectsWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	rules := writeRules(t, tmpDir,
		"object network Web01",
		" host 10.1.1.10",
		"object network App01",
		" subnet 10.2.0.0 255.255.0.0",
	)
	outFile := filepath.Join(tmpDir, "objects.csv")
	cfgFile := filepath.Join(tmpDir, "analyzer.yaml")
	cfgData := "filter: 'web*'\noutput:\n  format: csv\n  file: " + outFile + "\n"
	if err := os.WriteFile(cfgFile, []byte(cfgData), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"objects", "--rules", rules, "--config", cfgFile})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "Web01") || strings.Contains(out, "App01") {
		t.Errorf("config file filter not applied:\n%s", out)
	}
}

func TestRunErrors(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"nat", "--rules", "/nonexistent/rules"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for nonexistent rules file")
	}

	tmpDir := t.TempDir()
	rules := writeRules(t, tmpDir, "object network A", " host 10.0.0.1")

	cmd = newRootCmd()
	cmd.SetArgs([]string{"objects", "--rules", rules, "--provider", "invalid"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for invalid provider")
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"objects", "--rules", rules, "--format", "xml"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for unknown output format")
	}

	cmd = newRootCmd()
	cmd.SetArgs([]string{"objects", "--rules", rules, "--config", filepath.Join(tmpDir, "missing.yaml")})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for missing config file")
	}
}
