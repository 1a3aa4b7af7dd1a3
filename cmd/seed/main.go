// Command seed manages the fixture collections of the configured store.
//
//	seed [-config path] seed|reset|dump
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-admin/config"
	"github.com/jwalitptl/dental-admin/internal/seed"
	"github.com/jwalitptl/dental-admin/internal/storage"
	"github.com/jwalitptl/dental-admin/pkg/logger"
	"github.com/jwalitptl/dental-admin/pkg/security"
)

const (
	cmdSeed  = "seed"
	cmdReset = "reset"
	cmdDump  = "dump"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] seed|reset|dump\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stderr,
		JSON:       cfg.Log.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0), os.Stdout, appLog); err != nil {
		appLog.Fatal(err, "seed command failed", "command", flag.Arg(0))
	}
}

func run(ctx context.Context, cfg *config.Config, command string, out io.Writer, appLog *logger.Logger) error {
	switch command {
	case cmdSeed, cmdReset, cmdDump:
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	store, err := storage.Open(ctx, cfg.Storage, nil)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLog.Error(err, "failed to close store")
		}
	}()

	seeder := seed.NewSeeder(store, security.NewHasher(cfg.Auth.PasswordMode, cfg.Auth.BcryptCost), appLog)

	switch command {
	case cmdSeed:
		return seeder.EnsureSeeded(ctx)
	case cmdReset:
		return seeder.Reset(ctx)
	default:
		values, err := seeder.Dump(ctx)
		if err != nil {
			return err
		}
		return writeDump(out, values)
	}
}

// writeDump prints the stored values as one JSON object keyed by storage key.
// Values that are not JSON are printed as strings.
func writeDump(out io.Writer, values map[string]string) error {
	doc := make(map[string]any, len(values))
	for k, v := range values {
		if json.Valid([]byte(v)) {
			doc[k] = json.RawMessage(v)
		} else {
			doc[k] = v
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}
