package llamaserver

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStartProcess_MissingBinary(t *testing.T) {
	_, err := StartProcess(ProcessOptions{Bin: filepath.Join(t.TempDir(), "nope"), ModelPath: "/m.gguf"}, zerolog.Nop())
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestStartProcess_EmptyModelPath(t *testing.T) {
	p := writeExecutable(t, t.TempDir())
	if _, err := StartProcess(ProcessOptions{Bin: p}, zerolog.Nop()); err == nil || !strings.Contains(err.Error(), "model path") {
		t.Fatalf("expected model path error, got %v", err)
	}
}

func TestProcessArgs(t *testing.T) {
	args := strings.Join(processArgs(ProcessOptions{ModelPath: "/m/a.gguf", CtxSize: 2048, Threads: 4, GPULayers: 99}, "127.0.0.1", 30001), " ")
	want := "--host 127.0.0.1 --port 30001 -m /m/a.gguf --ctx-size 2048 --threads 4 --n-gpu-layers 99"
	if args != want {
		t.Fatalf("args=%q, want %q", args, want)
	}
	args = strings.Join(processArgs(ProcessOptions{ModelPath: "/m/a.gguf"}, "0.0.0.0", 1), " ")
	if args != "--host 0.0.0.0 --port 1 -m /m/a.gguf" {
		t.Fatalf("args=%q", args)
	}
}

func TestFindFreePort(t *testing.T) {
	p, err := FindFreePort("127.0.0.1")
	if err != nil {
		t.Fatalf("find port: %v", err)
	}
	if p <= 0 {
		t.Fatalf("port=%d", p)
	}
}

// lockedBuffer is a bytes.Buffer safe for the two output readers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartProcess_LogsOutputBeforeExit(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "echo loading model\necho out of memory 1>&2\necho final line\nexit 3\n")
	var logs lockedBuffer
	p, err := StartProcess(ProcessOptions{Bin: bin, ModelPath: filepath.Join(dir, "m.gguf")}, zerolog.New(&logs).Level(zerolog.DebugLevel))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	out := logs.String()
	for _, line := range []string{"loading model", "out of memory", "final line"} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in logs:\n%s", line, out)
		}
	}
}
