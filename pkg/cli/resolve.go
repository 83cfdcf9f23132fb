package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func newResolveCommand(s streams) *Command {
	cmd, lf := newSubcommand(s, "resolve", "Show how dependency references resolve against the library")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if cmd.Flags.NArg() == 0 {
			return fmt.Errorf("usage: depot resolve [-dir DIR] <dependency>...")
		}

		result, err := lf.analyze(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "DEPENDENCY\tTARGET\tSTRATEGY")
		for _, dep := range cmd.Flags.Args() {
			res, ok := result.Resolve(dep)
			if !ok {
				fmt.Fprintf(w, "%s\t-\tunresolved\n", dep)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", dep, res.Target, res.Strategy)
		}
		return w.Flush()
	}

	return cmd
}
