package main

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogCheckBuiltIn(t *testing.T) {
	out, err := execute(t, "catalog", "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "9 missions, 6 prizes, 3x3 grid") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStatusAndResetWithFlags(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "status", "--data-dir", dir, "--prizes=false")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "(not set up yet)") || !strings.Contains(out, "missions:  0/9") {
		t.Fatalf("unexpected status %q", out)
	}

	out, err = execute(t, "reset", "--yes", "--data-dir", dir)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "Progress erased.") {
		t.Fatalf("unexpected reset output %q", out)
	}
}

func TestSetupRejectsMissingPhoto(t *testing.T) {
	if _, err := execute(t, "setup", "--data-dir", t.TempDir(), "--photo", "/nope/missing.png"); err == nil {
		t.Fatalf("expected setup error")
	}
}

func TestPlayRejectsBadStyle(t *testing.T) {
	if _, err := execute(t, "--data-dir", t.TempDir(), "--memory", "--style", "neon"); err == nil {
		t.Fatalf("expected invalid style error")
	}
}
