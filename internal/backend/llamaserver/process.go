package llamaserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"textgend/internal/common/fsutil"
)

// ProcessOptions describes how to launch llama-server.
type ProcessOptions struct {
	Bin       string
	Host      string
	Port      int // 0 picks a free port
	ModelPath string
	CtxSize   int
	Threads   int
	GPULayers int
}

// Process is a supervised llama-server child.
type Process struct {
	cmd     *exec.Cmd
	baseURL string
	done    chan struct{}
	waitErr error
	log     zerolog.Logger
}

// ErrBinaryNotFound is returned when no llama-server binary can be located.
var ErrBinaryNotFound = errors.New("llama-server not found: set llama_bin or install llama.cpp")

// StartProcess launches llama-server bound to opts.Host and returns once the
// process has started. Callers should wait for readiness with WaitReady.
func StartProcess(opts ProcessOptions, log zerolog.Logger) (*Process, error) {
	bin := strings.TrimSpace(opts.Bin)
	if bin == "" {
		bin = DiscoverBin()
	}
	if bin == "" {
		return nil, ErrBinaryNotFound
	}
	if !fsutil.IsFile(bin) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, bin)
	}
	modelPath := strings.TrimSpace(opts.ModelPath)
	if modelPath == "" {
		return nil, errors.New("model path is empty")
	}
	host := opts.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port == 0 {
		p, err := FindFreePort(host)
		if err != nil {
			return nil, err
		}
		port = p
	}
	cmd := exec.Command(bin, processArgs(opts, host, port)...)
	// Relative assets next to the model resolve from its directory.
	cmd.Dir = filepath.Dir(modelPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	p := &Process{
		cmd:     cmd,
		baseURL: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		done:    make(chan struct{}),
		log:     log.With().Str("component", "llama-server").Int("pid", cmd.Process.Pid).Logger(),
	}
	var drained sync.WaitGroup
	drained.Add(2)
	go p.drain(&drained, "stdout", stdout)
	go p.drain(&drained, "stderr", stderr)
	go func() {
		// Wait closes the pipes, so every line must be read first.
		drained.Wait()
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	p.log.Info().Str("bin", bin).Str("model", modelPath).Str("url", p.baseURL).Msg("llama-server started")
	return p, nil
}

func processArgs(opts ProcessOptions, host string, port int) []string {
	args := []string{
		"--host", host,
		"--port", strconv.Itoa(port),
		"-m", opts.ModelPath,
	}
	if opts.CtxSize > 0 {
		args = append(args, "--ctx-size", strconv.Itoa(opts.CtxSize))
	}
	if opts.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(opts.Threads))
	}
	if opts.GPULayers != 0 {
		args = append(args, "--n-gpu-layers", strconv.Itoa(opts.GPULayers))
	}
	return args
}

// BaseURL returns the address the process listens on.
func (p *Process) BaseURL() string { return p.baseURL }

// PID returns the operating system process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// Exited is closed when the process terminates.
func (p *Process) Exited() <-chan struct{} { return p.done }

// Stop asks the process to terminate and kills it if ctx expires first.
func (p *Process) Stop(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
		p.log.Info().Msg("llama-server stopped")
		return nil
	case <-ctx.Done():
		_ = p.cmd.Process.Kill()
		<-p.done
		p.log.Warn().Msg("llama-server killed after stop timeout")
		return ctx.Err()
	}
}

func (p *Process) drain(wg *sync.WaitGroup, stream string, r io.Reader) {
	defer wg.Done()
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for s.Scan() {
		p.log.Debug().Str("stream", stream).Msg(s.Text())
	}
	if err := s.Err(); err != nil {
		p.log.Warn().Err(err).Str("stream", stream).Msg("stopped reading llama-server output")
		// Keep the pipe empty so the child never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, r)
	}
}

// FindFreePort asks the kernel for an unused TCP port on host.
func FindFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// DiscoverBin looks for llama-server in common install locations and on PATH.
func DiscoverBin() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fsutil.IsFile(p) {
			return p
		}
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}
