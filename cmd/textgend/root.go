package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"textgend/internal/config"
)

// rootOptions holds persistent flags shared by all subcommands.
type rootOptions struct {
	envFile    string
	configPath string
	modelDir   string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)
	root := &cobra.Command{
		Use:           "textgend",
		Short:         "Text generation HTTP service backed by llama.cpp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(opts.envFile)
		},
	}
	// No subcommand means serve.
	root.Args = serve.Args
	root.RunE = serve.RunE
	pf := root.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.modelDir, "model-dir", "", "model directory (overrides MODEL_DIR_PATH)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: json|console")

	// serve flags are also accepted on the root command
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newModelsCmd(opts))
	return root
}

// loadDotEnv loads path without overriding variables that are already set.
func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loadConfig layers the config file, environment and persistent flags, then
// applies defaults and validates.
func loadConfig(opts *rootOptions, lookup config.LookupFunc) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}
	if opts.modelDir != "" {
		cfg.ModelDirPath = opts.modelDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lookupEnv(key string) (string, bool) { return os.LookupEnv(key) }
