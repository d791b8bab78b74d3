// Command txledger replays an ordered stream of account transactions
// and prints the final per-account snapshot to stdout.
//
// Individual records that fail to decode or are rejected by a ledger are
// logged and skipped; only boundary failures (unreadable input, broken
// output, store I/O) end the run.
package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"txledger/internal/cache"
	"txledger/internal/core"
	"txledger/internal/ingestion"
	"txledger/internal/observability"
	"txledger/internal/query"
)

func main() {
	defaults := cache.DefaultConfig()

	app := &cli.App{
		Name:      "txledger",
		Usage:     "replay a transaction stream and print the final account snapshot",
		ArgsUsage: "<transactions.csv>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "cache-size-limit",
				Usage:   "resident transactions per store before spilling to disk",
				Value:   defaults.SizeLimit,
				EnvVars: []string{"TXLEDGER_CACHE_SIZE_LIMIT"},
			},
			&cli.UintFlag{
				Name:    "partition-width",
				Usage:   "transaction ids per on-disk partition file",
				Value:   uint(defaults.PartitionWidth),
				EnvVars: []string{"TXLEDGER_PARTITION_WIDTH"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve Prometheus metrics on this address while processing",
				EnvVars: []string{"TXLEDGER_METRICS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"TXLEDGER_LOG_LEVEL"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "txledger:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one input file argument", 2)
	}

	log := observability.NewLoggerWithLevel("txledger", observability.ParseLogLevel(c.String("log-level")))

	var metrics *observability.Metrics
	if addr := c.String("metrics-addr"); addr != "" {
		metrics = observability.NewMetrics(prometheus.DefaultRegisterer)
		srv := &http.Server{
			Addr:              addr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Str("addr", addr).Msg("metrics listener failed")
			}
		}()
		defer srv.Close()
	}

	width := c.Uint("partition-width")
	if width == 0 || uint64(width) > math.MaxUint32 {
		return fmt.Errorf("partition-width must be between 1 and %d, got %d", uint32(math.MaxUint32), width)
	}
	if c.Int("cache-size-limit") < 0 {
		return fmt.Errorf("cache-size-limit must not be negative, got %d", c.Int("cache-size-limit"))
	}

	cfg := cache.Config{
		SizeLimit:      c.Int("cache-size-limit"),
		PartitionWidth: uint32(width),
	}

	input, err := os.Open(c.Args().First())
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	processor := core.NewProcessor(cfg, log, metrics)
	defer func() {
		if err := processor.Close(); err != nil {
			log.Error().Err(err).Msg("release transaction stores")
		}
	}()

	if err := replay(ingestion.NewReader(input), processor, log); err != nil {
		return err
	}

	if err := query.WriteSnapshots(os.Stdout, processor.Snapshots()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// replay feeds records into the processor one at a time, in stream
// order. Record-level failures are logged and skipped; a store I/O
// failure ends the run because ledger state can no longer be trusted.
func replay(reader *ingestion.Reader, processor *core.Processor, log zerolog.Logger) error {
	records := 0
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}

		var decodeErr *ingestion.DecodeError
		if errors.As(err, &decodeErr) {
			if decodeErr.Header() {
				log.Debug().Err(decodeErr).Msg("skipping header row")
			} else {
				log.Warn().Err(decodeErr).Msg("ignoring undecodable row")
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		records++
		if err := processor.Process(rec); err != nil {
			if errors.Is(err, cache.ErrIO) {
				return fmt.Errorf("transaction store failed: %w", err)
			}
			log.Warn().
				Err(err).
				Str("type", rec.Type).
				Uint16("client", rec.Client).
				Uint32("tx", rec.Tx).
				Msg("ignoring rejected record")
		}
	}

	log.Info().
		Int("records", records).
		Int("accounts", processor.Accounts()).
		Msg("stream replay complete")
	return nil
}
