package cli

import (
	"context"
	"fmt"
	"strings"
)

func newDependentsCommand(s streams) *Command {
	cmd, lf := newSubcommand(s, "dependents", "List the packages that depend on a package")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if cmd.Flags.NArg() != 1 {
			return fmt.Errorf("usage: depot dependents [-dir DIR] <creator.package.version>")
		}
		id := strings.ToLower(cmd.Flags.Arg(0))

		result, err := lf.analyze(context.Background())
		if err != nil {
			return err
		}

		dependents := result.DependentsOf(id)
		if dependents == nil {
			return fmt.Errorf("package not found: %s", id)
		}

		for _, dependent := range dependents {
			fmt.Fprintln(cmd.out, dependent)
		}
		return nil
	}

	return cmd
}
