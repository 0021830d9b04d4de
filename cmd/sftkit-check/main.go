// Command sftkit-check sets up multi-node logging and optionally loads a conversation dataset,
// printing its split sizes. Run it before training to confirm output from every node is visible.
//
//	sftkit-check [-log-dir logs] [-manifest dataset.yaml | -train path [-val path] [-chat-key k] [-system-key k] [-system-prompt s]]
//
// Variables from .env (if present) are loaded first; existing environment variables win.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/skosovsky/sftkit"
	"github.com/skosovsky/sftkit/dataset"
	"github.com/skosovsky/sftkit/manifest"
	"github.com/skosovsky/sftkit/nodelog"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "sftkit-check: load .env:", err)
		os.Exit(1)
	}
	os.Exit(run(context.Background(), os.Args[1:]))
}

type options struct {
	logDir       string
	manifestPath string
	dc           sftkit.DatasetConfig
}

func parseFlags(args []string) (options, error) {
	var o options
	flags := flag.NewFlagSet("sftkit-check", flag.ContinueOnError)
	flags.StringVar(&o.logDir, "log-dir", envOr("SFTKIT_LOG_DIR", nodelog.DefaultLogDir), "directory for per-node log files")
	flags.StringVar(&o.manifestPath, "manifest", "", "YAML dataset manifest")
	flags.StringVar(&o.dc.TrainPath, "train", "", "train dataset locator (file, directory or URL)")
	flags.StringVar(&o.dc.ValPath, "val", "", "optional validation dataset locator")
	flags.StringVar(&o.dc.ChatKey, "chat-key", sftkit.DefaultChatKey, "record field holding the message list")
	flags.StringVar(&o.dc.SystemKey, "system-key", "", "record field holding a per-example system prompt")
	flags.StringVar(&o.dc.SystemPrompt, "system-prompt", "", "fixed system prompt")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if o.manifestPath != "" && o.dc.TrainPath != "" {
		return options{}, errors.New("-manifest and -train are mutually exclusive")
	}
	return o, nil
}

func run(ctx context.Context, args []string) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "sftkit-check:", err)
		return 2
	}
	cfg := nodelog.DefaultConfig()
	cfg.LogDir = o.logDir
	lg, err := nodelog.Setup(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sftkit-check:", err)
		return 1
	}
	defer func() { _ = lg.Close() }()

	logger := lg.Logger("sftkit-check")
	ctx = nodelog.NewContext(ctx, logger)
	ctx = nodelog.NewPrinterContext(ctx, lg.Printer())
	if err := checkDataset(ctx, o); err != nil {
		logger.ErrorContext(ctx, "dataset check failed", slog.Any("error", err))
		return 1
	}
	lg.Printer().Println("logging setup complete")
	return 0
}

func checkDataset(ctx context.Context, o options) error {
	dc := o.dc
	if o.manifestPath != "" {
		parsed, err := manifest.ParseFile(o.manifestPath)
		if err != nil {
			return err
		}
		dc = parsed
	}
	if dc.TrainPath == "" {
		return nil
	}
	ds, err := dataset.NewFromConfig(ctx, dc)
	if err != nil {
		return err
	}
	p := nodelog.PrinterFromContext(ctx)
	bundle := ds.FormattedDS()
	splits := make([]sftkit.Split, 0, len(bundle))
	for split := range bundle {
		splits = append(splits, split)
	}
	slices.Sort(splits)
	for _, split := range splits {
		p.Printf("%s: %d examples (task %s)", split, len(bundle[split]), ds.TaskSpec().TaskName)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
