package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/platinummonkey/depot/pkg/dependencies"
)

func newScanCommand(s streams) *Command {
	cmd, lf := newSubcommand(s, "scan", "Scan the library and print a dependency report")
	outputJSON := cmd.Flags.Bool("json", false, "Print the report as JSON")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		result, err := lf.analyze(context.Background())
		if err != nil {
			return err
		}

		if *outputJSON {
			enc := json.NewEncoder(cmd.out)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Report)
		}

		printReport(cmd, result.Report)
		return nil
	}

	return cmd
}

func printReport(cmd *Command, report dependencies.Report) {
	w := tabwriter.NewWriter(cmd.out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Packages:\t%d\n", report.Packages)
	fmt.Fprintf(w, "Indexed:\t%d\n", report.Indexed)
	fmt.Fprintf(w, "Edges:\t%d\n", report.Edges)
	fmt.Fprintf(w, "Duplicates:\t%d\n", len(report.Duplicates))
	fmt.Fprintf(w, "Unresolved:\t%d\n", len(report.Unresolved))
	w.Flush()

	if len(report.StrategyCounts) > 0 {
		strategies := make([]string, 0, len(report.StrategyCounts))
		for strategy := range report.StrategyCounts {
			strategies = append(strategies, string(strategy))
		}
		sort.Strings(strategies)

		fmt.Fprintln(cmd.out, "\nResolved by strategy:")
		w = tabwriter.NewWriter(cmd.out, 0, 0, 3, ' ', 0)
		for _, strategy := range strategies {
			fmt.Fprintf(w, "  %s\t%d\n", strategy, report.StrategyCounts[dependencies.Strategy(strategy)])
		}
		w.Flush()
	}

	if len(report.Unresolved) > 0 {
		fmt.Fprintln(cmd.out, "\nUnresolved dependencies:")
		for _, u := range report.Unresolved {
			fmt.Fprintf(cmd.out, "  %s -> %s\n", u.Consumer, u.Dependency)
		}
	}
}
