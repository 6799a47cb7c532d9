package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	config "github.com/hanpama/flatgraph/internal/config"
	eventbus "github.com/hanpama/flatgraph/internal/eventbus"
	ir "github.com/hanpama/flatgraph/internal/ir"
	language "github.com/hanpama/flatgraph/internal/language"
	legacyir "github.com/hanpama/flatgraph/internal/legacyir"
	otel "github.com/hanpama/flatgraph/internal/otel"
	runid "github.com/hanpama/flatgraph/internal/runid"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

// rootOptions holds the flags shared by every command and the config they
// resolve to.
type rootOptions struct {
	configFile string
	envFile    string
	verbose    bool

	schema         []string
	documents      string
	exclude        []string
	mergeFragments bool
	inline         bool

	cfg      *config.Config
	shutdown func(context.Context) error
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "flatgraph",
		Short: "Flatten GraphQL selection sets per possible type",
		Long: `flatgraph compiles GraphQL operations and fragments against a schema and
computes, for every concrete type a selection can resolve to, the merged list
of fields selected for it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default "+config.DefaultFile+" when present)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file merged into the environment")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	flags.StringSliceVarP(&opts.schema, "schema", "s", nil, "schema SDL files")
	flags.StringVarP(&opts.documents, "documents", "d", "", "directory searched for .graphql documents")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "paths skipped while searching documents")
	flags.BoolVar(&opts.mergeFragments, "merge-fragments", true, "merge fields of spread fragments into the spreading selection")
	flags.BoolVar(&opts.inline, "inline-redundant-type-conditions", true, "inline type conditions that do not narrow their selection")

	cmd.AddCommand(newCompileCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	for _, sub := range cmd.Commands() {
		opts.flushTelemetryAfter(sub)
	}

	return cmd
}

var setupTelemetry = otel.Setup

// flushTelemetryAfter wraps the RunE of cmd so that spans are shut down and
// flushed whether or not the command fails. cobra skips post-run hooks when
// RunE returns an error.
func (o *rootOptions) flushTelemetryAfter(cmd *cobra.Command) {
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if o.shutdown == nil {
				return
			}
			shutdown := o.shutdown
			o.shutdown = nil
			if serr := shutdown(context.Background()); serr != nil && err == nil {
				err = commandError(fmt.Errorf("otel shutdown: %w", serr))
			}
		}()
		return run(cmd, args)
	}
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	path := o.configFile
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return commandError(err)
		}
	}
	cfg, err := config.Load(path, o.envFile)
	if err != nil {
		return commandError(err)
	}

	flags := cmd.Flags()
	if flags.Changed("schema") {
		cfg.Schema = o.schema
	}
	if flags.Changed("documents") {
		cfg.Documents = o.documents
	}
	if flags.Changed("exclude") {
		cfg.Exclude = o.exclude
	}
	if flags.Changed("merge-fragments") {
		cfg.MergeInFieldsFromFragmentSpreads = o.mergeFragments
	}
	if flags.Changed("inline-redundant-type-conditions") {
		cfg.InlineRedundantTypeConditions = o.inline
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	o.cfg = cfg

	level, err := cfg.SlogLevel()
	if err != nil {
		return commandError(err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	eventbus.Use(eventbus.New())
	shutdown, err := setupTelemetry(cfg.Telemetry.Endpoint, cfg.Telemetry.Service)
	if err != nil {
		return commandError(fmt.Errorf("otel setup: %w", err))
	}
	o.shutdown = shutdown

	ctx, id := runid.NewContext(cmd.Context())
	cmd.SetContext(ctx)
	slog.Debug("run started", "runId", id, "config", path)
	return nil
}

func (o *rootOptions) transformOptions() legacyir.Options {
	return legacyir.Options{
		MergeInFieldsFromFragmentSpreads: o.cfg.MergeInFieldsFromFragmentSpreads,
		InlineRedundantTypeConditions:    o.cfg.InlineRedundantTypeConditions,
	}
}

func (o *rootOptions) loadSchema() (*schema.Schema, error) {
	sch, err := schema.LoadFiles(o.cfg.Schema...)
	if err != nil {
		if isGraphQLError(err) {
			return nil, failure(fmt.Errorf("load schema: %w", err))
		}
		return nil, commandError(fmt.Errorf("load schema: %w", err))
	}
	return sch, nil
}

// compile loads the schema and compiles every discovered document.
func (o *rootOptions) compile(ctx context.Context) (*ir.Context, error) {
	sch, err := o.loadSchema()
	if err != nil {
		return nil, err
	}
	exclude := append(slices.Clone(o.cfg.Exclude), o.cfg.Schema...)
	disc, err := ir.NewFileSystemDiscovery(ctx, o.cfg.Documents, exclude...)
	if err != nil {
		return nil, commandError(fmt.Errorf("discover documents: %w", err))
	}
	c, err := ir.Compile(ctx, sch, disc)
	if err != nil {
		var verr ir.ValidationError
		if errors.As(err, &verr) {
			return nil, failure(err)
		}
		return nil, commandError(err)
	}
	return c, nil
}

func isGraphQLError(err error) bool {
	var single *language.Error
	var list language.ErrorList
	return errors.As(err, &single) || errors.As(err, &list)
}
