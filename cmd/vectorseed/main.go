// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/vectorseed"
	"github.com/poiesic/vectorseed/config"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/progress"
)

// Process exit codes.
const (
	exitOK               = 0
	exitFailure          = 1
	exitConfig           = 2
	exitProvisioning     = 3
	exitEmbedding        = 4
	exitIntegrity        = 5
	exitInputUnreadable  = 6
	defaultFailureSample = 10
)

var errPartialFailure = errors.New("some records were not ingested")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil && !errors.Is(err, errPartialFailure) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vectorseed",
		Usage: "Provision a vector index and seed it with embedded text records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"VECTORSEED_CONFIG"},
			},
		},
		Before: setupLogger,
		// Exit codes are mapped by main.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Provision the index, ingest every input record and verify the result",
				Action: runCommand,
				Flags: append(commonFlags(),
					&cli.StringSliceFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Input file, directory, glob or s3://bucket/prefix (repeatable)",
					},
					&cli.StringFlag{Name: "id-field", Usage: "Record field holding the identity"},
					&cli.StringFlag{Name: "text-field", Usage: "Record field holding the text to embed"},
					&cli.StringSliceFlag{Name: "metadata-field", Usage: "Record field copied into metadata (repeatable)"},
					&cli.StringFlag{Name: "records-key", Usage: "Key of the record array in JSON documents"},
					&cli.IntFlag{Name: "batch-size", Usage: "Number of records per batch"},
					&cli.IntFlag{Name: "workers", Usage: "Number of batches processed concurrently"},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records when not on a terminal",
						Value: 100,
					},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not report progress"},
					&cli.IntFlag{
						Name:  "failure-sample",
						Usage: "Number of failed records listed in the summary",
						Value: defaultFailureSample,
					},
				),
			},
			{
				Name:   "provision",
				Usage:  "Create or reset the index without ingesting",
				Action: provisionCommand,
				Flags:  commonFlags(),
			},
			{
				Name:   "stats",
				Usage:  "Compare the namespace's vector count with an expected count",
				Action: statsCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "expected",
						Usage: "Expected number of vectors in the namespace",
					},
				),
			},
		},
	}
}

// commonFlags override values loaded from the configuration file.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "index", Usage: "Index name"},
		&cli.StringFlag{Name: "namespace", Aliases: []string{"n"}, Usage: "Namespace within the index"},
		&cli.IntFlag{Name: "dimension", Usage: "Vector dimension"},
		&cli.StringFlag{Name: "metric", Usage: "Similarity metric (cosine, euclidean, dotproduct)"},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Provisioning mode (reset, merge)"},
		&cli.StringFlag{Name: "store", Usage: "Vector store backend (pinecone, badger)"},
		&cli.StringFlag{Name: "store-path", Usage: "Badger data directory"},
		&cli.StringFlag{Name: "embedding-provider", Usage: "Embedding provider (openai, mock)"},
		&cli.StringFlag{Name: "embedding-host", Usage: "Embedding service host URL"},
		&cli.StringFlag{Name: "embedding-model", Usage: "Embedding model name"},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	overrideString(c, "index", &cfg.Index.Name)
	overrideString(c, "namespace", &cfg.Index.Namespace)
	overrideString(c, "metric", &cfg.Index.Metric)
	overrideString(c, "mode", &cfg.Mode)
	overrideString(c, "store", &cfg.Store.Backend)
	overrideString(c, "store-path", &cfg.Store.Path)
	overrideString(c, "embedding-provider", &cfg.Embedding.Provider)
	overrideString(c, "embedding-host", &cfg.Embedding.Host)
	overrideString(c, "embedding-model", &cfg.Embedding.Model)
	overrideString(c, "id-field", &cfg.Input.IDField)
	overrideString(c, "text-field", &cfg.Input.TextField)
	overrideString(c, "records-key", &cfg.Input.RecordsKey)
	overrideInt(c, "dimension", &cfg.Index.Dimension)
	overrideInt(c, "batch-size", &cfg.Ingestion.BatchSize)
	overrideInt(c, "workers", &cfg.Ingestion.Workers)
	if c.IsSet("input") {
		cfg.Input.Paths = c.StringSlice("input")
	}
	if c.IsSet("metadata-field") {
		cfg.Input.MetadataFields = c.StringSlice("metadata-field")
	}
	return cfg, nil
}

func overrideString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func overrideInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func runCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var reporter progress.Reporter = progress.Nop{}
	if !c.Bool("quiet") {
		reporter = progress.New(c.App.ErrWriter, c.Int("report-interval"))
	}

	seeder, err := vectorseed.NewSeeder(cfg, vectorseed.WithProgress(reporter))
	if err != nil {
		return err
	}
	defer seeder.Close()

	fmt.Fprintf(c.App.ErrWriter, "Index: %s (namespace %s, mode %s)\n", cfg.Index.Name, cfg.Index.Namespace, cfg.Mode)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintf(c.App.ErrWriter, "Input: %s\n", strings.Join(cfg.Input.Paths, ", "))

	result, err := seeder.Run(c.Context)
	if result != nil && result.Report != nil {
		fmt.Fprint(c.App.Writer, result.Report.Summary(c.Int("failure-sample")))
	}
	if err != nil {
		return err
	}
	if v := result.Verification; v != nil {
		printVerification(c, v)
	}
	if !result.Report.OK() {
		return errPartialFailure
	}
	return nil
}

func provisionCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	seeder, err := vectorseed.NewSeeder(cfg)
	if err != nil {
		return err
	}
	defer seeder.Close()

	desc, err := seeder.Provision(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "index %s ready: dimension %d, metric %s\n", desc.Name, desc.Dimension, desc.Metric)
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// Stats never provisions; merge compares counts as a lower bound.
	if cfg.Mode == "" {
		cfg.Mode = "merge"
	}
	seeder, err := vectorseed.NewSeeder(cfg)
	if err != nil {
		return err
	}
	defer seeder.Close()

	result, err := seeder.Stats(c.Context, c.Int("expected"))
	if err != nil {
		return err
	}
	printVerification(c, result)
	return nil
}

func printVerification(c *cli.Context, v *core.VerificationResult) {
	fmt.Fprintf(c.App.Writer, "index %s namespace %s: %d vectors", v.Index, v.Namespace, v.Observed)
	if v.Stats != nil {
		fmt.Fprintf(c.App.Writer, " (%d in index, dimension %d)", v.Stats.TotalVectorCount, v.Stats.Dimension)
	}
	fmt.Fprintln(c.App.Writer)
	if v.Warning != "" {
		fmt.Fprintf(c.App.Writer, "warning: %s\n", v.Warning)
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var (
		cfgErr       *core.ConfigurationError
		provErr      *core.IndexProvisioningError
		integrityErr *core.IntegrityError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, vectorseed.ErrInputUnreadable):
		return exitInputUnreadable
	case !core.IsFatal(err):
		return exitFailure
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &provErr), errors.Is(err, core.ErrIndexNotProvisioned):
		return exitProvisioning
	case errors.Is(err, core.ErrEmbeddingUnavailable):
		return exitEmbedding
	case errors.As(err, &integrityErr):
		return exitIntegrity
	}
	return exitFailure
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return &core.ConfigurationError{
			Field:  "log-level",
			Reason: fmt.Sprintf("invalid log level %q: must be one of debug, info, warn, error", levelStr),
		}
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
