package defaults

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestListDefaults(t *testing.T) {
	files, err := ListDefaults()
	if err != nil {
		t.Fatalf("ListDefaults failed: %v", err)
	}

	expected := []string{
		"config.json",
		"commands/islamic/basmalah.go",
		"commands/utility/ping.go",
		"commands/utility/transliterate.go",
	}
	for _, exp := range expected {
		if !slices.Contains(files, exp) {
			t.Errorf("Expected file %s not found in %v", exp, files)
		}
	}
}

func TestDataDirOverride(t *testing.T) {
	want := t.TempDir()
	t.Setenv("SALAFIBOT_DATA_DIR", want)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != want {
		t.Errorf("Expected %s, got %s", want, dir)
	}
}

func TestSeedPreservesCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := Seed(dir, false); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "commands", "utility", "ping.go")); err != nil {
		t.Errorf("ping.go was not copied: %v", err)
	}

	docPath := filepath.Join(dir, ConfigDocument)
	custom := []byte(`{"commands":{"ping":false}}`)
	if err := os.WriteFile(docPath, custom, 0644); err != nil {
		t.Fatal(err)
	}

	if err := Reset(dir); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	got, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(custom) {
		t.Errorf("Reset overwrote the catalog document: %s", got)
	}
}
