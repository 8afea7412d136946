package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"textgend/internal/manager"
	"textgend/internal/registry"
)

func newModelsCmd(root *rootOptions) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:     "models",
		Short:   "List *.gguf model artifacts in the model directory",
		Example: "  textgend models --model-dir ./models/tiny\n  textgend models --check",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, lookupEnv)
			if err != nil {
				return err
			}
			mc := manager.FromConfig(cfg)
			out := cmd.OutOrStdout()
			if check {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(manager.NewWithConfig(mc).SanityCheck())
			}
			models, err := registry.LoadDir(mc.ModelDir)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintf(out, "no *.gguf models in %s\n", mc.ModelDir)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSIZE\tPATH")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, humanBytes(m.SizeBytes), m.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "report llama-server and model availability as JSON")
	return cmd
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
