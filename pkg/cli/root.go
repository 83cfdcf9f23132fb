package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	out io.Writer
}

// streams are the writers commands print results and diagnostics to
type streams struct {
	out io.Writer
	err io.Writer
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	return newRootCommand(streams{out: os.Stdout, err: os.Stderr})
}

func newRootCommand(s streams) *Command {
	root := &Command{
		Name:        "depot",
		Description: "Depot - reverse dependency resolver for package libraries",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("depot", flag.ContinueOnError),
		out:         s.out,
	}

	root.Subcommands["scan"] = newScanCommand(s)
	root.Subcommands["dependents"] = newDependentsCommand(s)
	root.Subcommands["export"] = newExportCommand(s)
	root.Subcommands["resolve"] = newResolveCommand(s)
	root.Subcommands["import"] = newImportCommand(s)

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command with args
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(c.out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(c.out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// newSubcommand creates a subcommand with the flags every command shares
func newSubcommand(s streams, name, description string) (*Command, *libraryFlags) {
	cmd := &Command{
		Name:        name,
		Description: description,
		Flags:       flag.NewFlagSet(name, flag.ContinueOnError),
		out:         s.out,
	}
	cmd.Flags.SetOutput(s.err)

	lf := &libraryFlags{logOutput: s.err}
	cmd.Flags.StringVar(&lf.dir, "dir", defaultLibraryDir, "Library root directory")
	cmd.Flags.BoolVar(&lf.verbose, "v", false, "Enable debug logging")

	return cmd, lf
}
