package metrics

import (
	"context"
	"path/filepath"
	"testing"
)

func TestVolume(t *testing.T) {
	dir := t.TempDir()

	usage, err := Volume(context.Background(), dir)
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	if usage.Path != dir {
		t.Errorf("expected path %q, got %q", dir, usage.Path)
	}
	if usage.Total == 0 {
		t.Error("expected non-zero total size")
	}
	if usage.UsedPercent < 0 || usage.UsedPercent > 100 {
		t.Errorf("used percent should be between 0 and 100, got %f", usage.UsedPercent)
	}
	if usage.LowSpace != (usage.UsedPercent >= LowSpacePercent) {
		t.Errorf("low space flag %t does not match %f%% used", usage.LowSpace, usage.UsedPercent)
	}
}

func TestVolume_MissingDirUsesParent(t *testing.T) {
	dir := t.TempDir()

	usage, err := Volume(context.Background(), filepath.Join(dir, "backups", "nested"))
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	if usage.Path != dir {
		t.Errorf("expected nearest existing parent %q, got %q", dir, usage.Path)
	}
}

func TestVolume_RelativePath(t *testing.T) {
	usage, err := Volume(context.Background(), "not-created-yet")
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	if !filepath.IsAbs(usage.Path) {
		t.Errorf("expected absolute path, got %q", usage.Path)
	}
}
