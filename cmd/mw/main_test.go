package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "mw dev") {
		t.Errorf("expected output to contain 'mw dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Millwright") {
		t.Errorf("expected help output to contain 'Millwright', got: %s", out)
	}
	for _, sub := range []string{"version", "serve", "sweep", "ticket", "machine", "alert", "db"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestParseAssignee(t *testing.T) {
	a, err := parseAssignee("none")
	if err != nil || !a.IsUnassigned() {
		t.Errorf("none = %s, %v", a, err)
	}
	a, err = parseAssignee("team")
	if err != nil || !a.IsTeam() {
		t.Errorf("team = %s, %v", a, err)
	}
	a, err = parseAssignee("7")
	if id, _ := a.UserID(); err != nil || id != 7 {
		t.Errorf("7 = %s, %v", a, err)
	}
	if _, err := parseAssignee("0"); err == nil {
		t.Error("0 should be rejected")
	}
	if _, err := parseAssignee("bob"); err == nil {
		t.Error("non-numeric should be rejected")
	}
}

func TestParseScheduled(t *testing.T) {
	for _, ok := range []string{"2026-02-01T09:00:00Z", "2026-02-01 09:00", "2026-02-01"} {
		if ts, err := parseScheduled(ok); err != nil || ts == nil {
			t.Errorf("parseScheduled(%q) = %v, %v", ok, ts, err)
		}
	}
	if ts, err := parseScheduled(""); err != nil || ts != nil {
		t.Errorf("empty = %v, %v", ts, err)
	}
	if _, err := parseScheduled("next tuesday"); err == nil {
		t.Error("garbage should be rejected")
	}
}

func TestDBInitAndTicketFlow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "millwright.yaml")
	cfg := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "mw.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	run := func(args ...string) string {
		t.Helper()
		cmd := newRootCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(append(args, "-c", cfgPath))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("mw %s: %v\n%s", strings.Join(args, " "), err, buf)
		}
		return buf.String()
	}

	out := run("db", "init")
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("db init output: %s", out)
	}

	// No machines yet, so listing is empty rather than an error.
	out = run("machine", "list")
	if !strings.Contains(out, "No machines found") {
		t.Errorf("machine list output: %s", out)
	}

	out = run("ticket", "list")
	if !strings.Contains(out, "No tickets found") {
		t.Errorf("ticket list output: %s", out)
	}

	out = run("alert", "list")
	if !strings.Contains(out, "No active alerts") {
		t.Errorf("alert list output: %s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a very long ticket title here", 10); got != "a very ..." {
		t.Errorf("truncate long = %q", got)
	}
}
