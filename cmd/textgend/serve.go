package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"textgend/internal/config"
	"textgend/internal/httpapi"
	"textgend/internal/manager"
)

type serveOptions struct {
	addr        string
	modelFile   string
	llamaURL    string
	llamaBin    string
	gpuLayers   int
	corsOrigins string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve /generate, /health, /docs and /metrics",
		Example: "  textgend serve --model-dir ./model\n" +
			"  textgend serve --llama-url http://127.0.0.1:8080",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, lookupEnv)
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)
			log, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log, lookupEnv, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "HTTP listen address (default :8000, env TEXTGEND_ADDR)")
	f.StringVar(&opts.modelFile, "model-file", "", "model file inside the model directory (default: first *.gguf)")
	f.StringVar(&opts.llamaURL, "llama-url", "", "use an already running llama-server instead of spawning one")
	f.StringVar(&opts.llamaBin, "llama-bin", "", "path to the llama-server binary (default: discovered)")
	f.IntVar(&opts.gpuLayers, "gpu-layers", 0, "layers to offload to the GPU (0 runs on CPU)")
	f.StringVar(&opts.corsOrigins, "cors-origins", "", "comma-separated allowed CORS origins; enables CORS")
	return cmd
}

// apply overlays explicitly set flags on cfg.
func (o *serveOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = o.addr
	}
	if f.Changed("model-file") {
		cfg.ModelFile = o.modelFile
	}
	if f.Changed("llama-url") {
		cfg.LlamaURL = o.llamaURL
	}
	if f.Changed("llama-bin") {
		cfg.LlamaBin = o.llamaBin
	}
	if f.Changed("gpu-layers") {
		cfg.LlamaGPULayers = o.gpuLayers
	}
	if f.Changed("cors-origins") {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = splitCSV(o.corsOrigins)
	}
}

// runServe loads the model, serves HTTP until ctx is done, then shuts down.
// When ready is non-nil it receives the bound listen address once serving.
func runServe(ctx context.Context, cfg config.Config, log zerolog.Logger, lookup config.LookupFunc, ready chan<- string) error {
	config.LogGenerationEnv(log, lookup)
	if _, err := config.ResolveGeneration(lookup); err != nil {
		log.Error().Err(err).Msg("invalid generation options")
		return err
	}

	mc := manager.FromConfig(cfg)
	mc.Lookup = lookup
	mc.Logger = &log
	mc.Publisher = manager.LogPublisher{Log: log}
	mgr := manager.NewWithConfig(mc)
	if err := mgr.Load(ctx); err != nil {
		log.Error().Err(err).Msg("failed to load model")
		return err
	}

	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetInferTimeoutSeconds(int64(cfg.InferTimeoutSeconds))
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		closeManager(mgr, cfg, log)
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Str("device", mgr.Device()).Msg("textgend listening")
	if ready != nil {
		ready <- ln.Addr().String()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	cancelBase()
	closeManager(mgr, cfg, log)
	return serveErr
}

func closeManager(mgr *manager.Manager, cfg config.Config, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := mgr.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("llama-server stop error")
	}
	log.Info().Msg("Model and tokenizer have been cleaned up.")
}
