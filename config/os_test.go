package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnableColorOutput_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	if EnableColorOutput(f) {
		t.Error("regular file must not get colorized output")
	}
}
