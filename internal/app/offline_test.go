package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sessionConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestSessionSetupStatusAndReset(t *testing.T) {
	ctx := context.Background()
	cfg := sessionConfig(t)

	s, err := OpenSession(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Setup(ctx, filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected missing photo error")
	}
	ref := writePNG(t, 120, 120)
	if _, err := s.Setup(ctx, ref); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s.Close()

	s, err = OpenSession(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	rep, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if rep.PhotoReference != ref || rep.Completed != 0 || rep.TotalMissions != 9 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !strings.HasPrefix(rep.NextMission, "1. ") {
		t.Fatalf("expected mission 1 next, got %q", rep.NextMission)
	}
	var buf bytes.Buffer
	rep.Write(&buf)
	if !strings.Contains(buf.String(), "missions:  0/9") {
		t.Fatalf("unexpected status output:\n%s", buf.String())
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Keeper.Snapshot().SetupComplete {
		t.Fatalf("reset should clear setup")
	}
}

func TestCheckCatalogReportsUnplayableMissions(t *testing.T) {
	ctx := context.Background()
	if _, missing, err := CheckCatalog(ctx, ""); err != nil || len(missing) != 0 {
		t.Fatalf("built-in catalog should be fully playable: %v %v", missing, err)
	}

	raw, err := os.ReadFile(filepath.Join("..", "catalog", "default_catalog.yaml"))
	if err != nil {
		t.Fatalf("read default catalog: %v", err)
	}
	edited := strings.Replace(string(raw), `capability: "dodge-game"`, `capability: "laser-tag"`, 1)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, missing, err := CheckCatalog(ctx, path)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(missing) != 1 || missing[0].Capability != "laser-tag" {
		t.Fatalf("expected laser-tag reported, got %+v", missing)
	}
}
