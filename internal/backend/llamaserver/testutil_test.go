package llamaserver

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExecutable(t *testing.T, dir string) string {
	t.Helper()
	return writeScript(t, dir, "exit 0\n")
}

// writeScript writes an executable shell script named llama-server.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "llama-server")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}
