package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tordrt/prismaschema"
	"github.com/tordrt/prismaschema/internal/config"
	"github.com/tordrt/prismaschema/internal/logger"
)

var (
	configPath  string
	outputPath  string
	genClient   bool
	watchConfig bool
	printStdout bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a Prisma schema from a YAML configuration",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&configPath, "config", "c", "prismaschema.yaml", "Configuration file")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Schema file (default: output from config)")
	generateCmd.Flags().BoolVar(&genClient, "client", false, "Run client generation after writing the schema")
	generateCmd.Flags().BoolVarP(&watchConfig, "watch", "w", false, "Regenerate whenever the configuration file changes")
	generateCmd.Flags().BoolVar(&printStdout, "stdout", false, "Print the schema instead of writing it")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log.Level, cfg.Log.Format)
	ctx = log.WithContext(ctx)

	job := generateJob{
		cfg:    cfg,
		log:    log,
		stdout: cmd.OutOrStdout(),
		output: outputPath,
		client: genClient,
		print:  printStdout,
	}
	if err := job.run(ctx); err != nil {
		return err
	}
	if !watchConfig {
		return nil
	}

	return watch(ctx, configPath, log, func() error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		job.cfg = cfg
		return job.run(ctx)
	})
}

// generateJob is one generate pass over a loaded configuration
type generateJob struct {
	cfg    *config.Config
	log    *logger.Logger
	stdout io.Writer
	output string
	client bool
	print  bool
}

func (j generateJob) run(ctx context.Context) error {
	gen, decls, err := newGenerator(j.cfg, j.log)
	if err != nil {
		return err
	}

	if j.print {
		_, err := gen.Fprint(ctx, j.stdout, decls...)
		return err
	}

	path := j.output
	if path == "" {
		path = j.cfg.Output
	}
	res, err := gen.WriteFile(ctx, path, decls...)
	if err != nil {
		return err
	}
	j.log.With().Int("models", len(res.Schema.Models)).Int("views", len(res.Schema.Views)).Logger().
		Infof("generated %s", path)

	if j.client || j.cfg.ClientGeneration.Enabled {
		out, err := prismaschema.GenerateClient(ctx, j.cfg.ClientGeneration.Command, path)
		if err != nil {
			return err
		}
		j.log.Debug(out)
	}
	return nil
}

// newGenerator builds a generator over the entities of cfg.
func newGenerator(cfg *config.Config, log *logger.Logger) (*prismaschema.Generator, []prismaschema.Declaration, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, nil, err
	}
	formatter, err := prismaschema.NewFormatter(cfg.Formatter, cfg.FormatCommand)
	if err != nil {
		return nil, nil, err
	}
	gens, err := cfg.SchemaGenerators()
	if err != nil {
		return nil, nil, err
	}
	enums, err := cfg.SchemaEnums()
	if err != nil {
		return nil, nil, err
	}

	opts := []prismaschema.Option{
		prismaschema.WithFormatter(formatter),
		prismaschema.WithGenerators(gens...),
		prismaschema.WithEnums(enums...),
		prismaschema.WithLogger(log),
	}
	ds, err := cfg.SchemaDataSource()
	if err != nil {
		return nil, nil, err
	}
	if ds != nil {
		opts = append(opts, prismaschema.WithDataSource(*ds))
	}
	return prismaschema.New(reg, opts...), reg.Declarations(), nil
}

// watch calls regenerate whenever the file at path is written, until ctx is
// done. Regeneration failures are logged and watching continues.
func watch(ctx context.Context, path string, log *logger.Logger, regenerate func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// saving may replace the file, so watch its directory
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	log.Infof("watching %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debugf("%s changed", path)
			if err := regenerate(); err != nil {
				log.ErrorWith("regeneration failed", err, map[string]any{"config": path})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.ErrorWith("watcher error", err, nil)
		}
	}
}
