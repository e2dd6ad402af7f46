package hostfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileExistsDistinguishesMissingFromPresent(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ok, err := FileExists(present)
	if err != nil || !ok {
		t.Fatalf("expected present file to exist, got ok=%v err=%v", ok, err)
	}

	ok, err = FileExists(filepath.Join(dir, "missing.txt"))
	if err != nil || ok {
		t.Fatalf("expected missing file to report false, got ok=%v err=%v", ok, err)
	}
}

func TestHostRunPublishedRequiresEverySlotFile(t *testing.T) {
	dir := t.TempDir()
	layout := NewLayout(dir, "g1")

	if err := os.MkdirAll(layout.OutSlotDir(1), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	published, err := HostRunPublished(layout, []int{1})
	if err != nil {
		t.Fatalf("HostRunPublished: %v", err)
	}
	if published {
		t.Fatalf("expected not published before any result file exists")
	}

	for _, path := range layout.SlotResultFiles(1) {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", path, err)
		}
	}

	published, err = HostRunPublished(layout, []int{1})
	if err != nil {
		t.Fatalf("HostRunPublished: %v", err)
	}
	if !published {
		t.Fatalf("expected published once every slot result file exists")
	}
}

func TestToolRegistryResolveUnknownToolIsInvalidValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosttools.toml")
	contents := `
[tool.phost]
binary = "phost4"
args = ["-q"]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, err := LoadToolRegistry(path)
	if err != nil {
		t.Fatalf("LoadToolRegistry: %v", err)
	}

	entry, err := reg.Resolve("phost")
	if err != nil {
		t.Fatalf("Resolve phost: %v", err)
	}
	if entry.Binary != "phost4" {
		t.Fatalf("expected binary phost4, got %q", entry.Binary)
	}

	if _, err := reg.Resolve("nonexistent"); err == nil {
		t.Fatalf("expected an error resolving an unknown tool")
	}
}
