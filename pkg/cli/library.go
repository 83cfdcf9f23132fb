package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/depot/pkg/api"
	"github.com/platinummonkey/depot/pkg/dependencies"
	"github.com/platinummonkey/depot/pkg/storage"
)

const defaultLibraryDir = "./library"

// libraryFlags are bound by every subcommand
type libraryFlags struct {
	dir       string
	verbose   bool
	logOutput io.Writer
}

func (f *libraryFlags) logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(f.logOutput)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)
	if f.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// load reads every package under the -dir root
func (f *libraryFlags) load(ctx context.Context, logger *logrus.Logger) ([]api.Package, error) {
	info, err := os.Stat(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", f.dir)
	}

	store, err := storage.NewFileSystemStorage(f.dir)
	if err != nil {
		return nil, err
	}

	packages, err := store.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"dir":      f.dir,
		"packages": len(packages),
	}).Debug("Loaded library")

	return packages, nil
}

// analyze reads the library under the -dir root and builds its reverse
// dependency map.
func (f *libraryFlags) analyze(ctx context.Context) (*dependencies.Result, error) {
	logger := f.logger()

	packages, err := f.load(ctx, logger)
	if err != nil {
		return nil, err
	}

	result := dependencies.Analyze(packages)
	logReport(logger, result)
	return result, nil
}

// logReport warns about duplicates and lists unresolved references at debug level
func logReport(logger *logrus.Logger, result *dependencies.Result) {
	for _, dup := range result.Report.Duplicates {
		logger.WithFields(logrus.Fields{
			"id":          dup.ID,
			"occurrences": dup.Occurrences,
		}).Warn("Duplicate package identifier, keeping the last one read")
	}
	for _, u := range result.Report.Unresolved {
		logger.WithFields(logrus.Fields{
			"consumer":   u.Consumer,
			"dependency": u.Dependency,
		}).Debug("Unresolved dependency")
	}
}
