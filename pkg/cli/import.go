package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/platinummonkey/depot/pkg/api"
	"github.com/platinummonkey/depot/pkg/dependencies"
	"github.com/platinummonkey/depot/pkg/storage"
	"github.com/platinummonkey/depot/pkg/storage/postgres"
)

func newImportCommand(s streams) *Command {
	cmd, lf := newSubcommand(s, "import", "Copy the library into PostgreSQL or another library directory")
	postgresURL := cmd.Flags.String("postgres", "", "PostgreSQL connection URL to import into")
	toDir := cmd.Flags.String("to", "", "Library directory to import into")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if (*postgresURL == "") == (*toDir == "") {
			return fmt.Errorf("import needs exactly one of -postgres or -to")
		}
		if *toDir != "" && sameDir(lf.dir, *toDir) {
			return fmt.Errorf("cannot import %s into itself", lf.dir)
		}

		ctx := context.Background()
		logger := lf.logger()

		packages, err := lf.load(ctx, logger)
		if err != nil {
			return err
		}
		result := dependencies.Analyze(packages)
		logReport(logger, result)

		var (
			sink   storage.Sink
			target string
		)
		if *postgresURL != "" {
			cfg := storage.DefaultConfig()
			cfg.Type = storage.TypePostgres
			cfg.PostgresURL = *postgresURL

			store, err := postgres.NewPostgresStorage(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			sink, target = store, "PostgreSQL"
		} else {
			store, err := storage.NewFileSystemStorage(*toDir)
			if err != nil {
				return err
			}
			sink, target = store, store.Root()
		}

		n, err := copyPackages(ctx, sink, packages)
		if err != nil {
			return err
		}
		logger.WithField("target", target).Debugf("Imported %d packages", n)

		fmt.Fprintf(cmd.out, "Imported %d packages into %s (%d dependency edges)\n", n, target, result.Report.Edges)
		return nil
	}

	return cmd
}

// copyPackages saves packages into sink in listing order, so a duplicate
// identifier ends up as the last one read, as in the built index.
func copyPackages(ctx context.Context, sink storage.Sink, packages []api.Package) (int, error) {
	n := 0
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := sink.SavePackage(ctx, &pkg); err != nil {
			return n, fmt.Errorf("failed to import %s: %w", pkg.ID(), err)
		}
		n++
	}
	return n, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
