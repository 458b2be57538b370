package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leofalp/textstruct/core/extract"
	"github.com/leofalp/textstruct/core/process"
	"github.com/leofalp/textstruct/core/structurer"
	"github.com/leofalp/textstruct/core/transport"
	"github.com/leofalp/textstruct/internal/config"
	"github.com/leofalp/textstruct/internal/diag"
	"github.com/leofalp/textstruct/providers/observability"
	"github.com/leofalp/textstruct/providers/observability/slogobs"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "textstruct",
		Short:        "Split two related texts into labeled units",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML config file (default: textstruct.yaml, config.yaml or ~/.config/textstruct/config.yaml)")

	root.AddCommand(
		newServeCommand(&configPath),
		newStructureCommand(&configPath),
	)
	return root
}

// app holds the components shared by every command.
type app struct {
	config    *config.Config
	observer  *slogobs.Observer
	store     *diag.Store
	processor *process.Processor
}

// newApp loads and validates the configuration and wires the processing
// pipeline. Logs are written to logOutput.
func newApp(ctx context.Context, configPath string, logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, ok := slogobs.ParseLevel(cfg.Log.Level)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}
	observer := slogobs.New(
		slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)),
		slogobs.WithLevel(level),
		slogobs.WithOutput(logOutput),
	)

	store, err := diag.NewStore(cfg.Log.Dir)
	if err != nil {
		return nil, err
	}

	sender := transport.New(
		transport.WithTimeout(cfg.Transport.Timeout),
		transport.WithBackoffUnit(cfg.Transport.BackoffUnit),
		transport.WithMaxAttempts(cfg.Transport.MaxAttempts),
		transport.WithObserver(observer),
	)
	extractor := extract.New(
		extract.WithRepair(cfg.Extract.Repair),
		extract.WithObserver(observer),
	)
	s := structurer.New(sender, structurer.Config{
		BaseURL:     cfg.Anthropic.BaseURL,
		APIKey:      cfg.Anthropic.APIKey,
		Version:     cfg.Anthropic.Version,
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
		MaxAttempts: cfg.Transport.MaxAttempts,
	}, structurer.WithExtractor(extractor), structurer.WithObserver(observer))

	observer.Debug(ctx, "Configuration loaded",
		observability.String(observability.AttrLLMModel, cfg.Anthropic.Model),
		observability.String("log.dir", cfg.Log.Dir),
		observability.Bool("extract.repair", cfg.Extract.Repair),
	)

	return &app{
		config:    cfg,
		observer:  observer,
		store:     store,
		processor: process.New(s, store, process.WithObserver(observer)),
	}, nil
}
