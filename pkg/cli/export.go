package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

func newExportCommand(s streams) *Command {
	cmd, lf := newSubcommand(s, "export", "Export the whole reverse dependency map")
	format := cmd.Flags.String("format", "json", "Output format (json, yaml)")
	output := cmd.Flags.String("o", "", "Write to file instead of stdout")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *format != "json" && *format != "yaml" {
			return fmt.Errorf("unsupported format: %s", *format)
		}

		result, err := lf.analyze(context.Background())
		if err != nil {
			return err
		}

		var w io.Writer = cmd.out
		if *output != "" {
			f, err := os.Create(*output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		if *format == "yaml" {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(result.Dependents); err != nil {
				return fmt.Errorf("failed to encode yaml: %w", err)
			}
			return enc.Close()
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Dependents)
	}

	return cmd
}
