// Package main imports candidate phrases from episode metadata CSV files
// into the candidate pool.
package main

import (
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/internal/config"
	"github.com/guestradar/guestradar/internal/ingest"
	"github.com/guestradar/guestradar/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	columns := flag.String("columns", "", "Comma-separated CSV columns to extract (default: title,description)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if flag.NArg() != 1 {
		log.Fatal().Msg("Usage: import [-columns title,description] <file.csv>")
	}
	path := flag.Arg(0)

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	var opts ingest.Options
	if *columns != "" {
		for _, c := range strings.Split(*columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				opts.Columns = append(opts.Columns, c)
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to open CSV file")
	}
	defer f.Close()

	parsed, stats, err := ingest.ReadCandidates(f, opts)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to parse CSV")
	}

	pool, err := store.OpenCandidateStore(config.CandidatesPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open candidate store")
	}

	added, err := pool.Append(parsed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to persist candidates")
	}

	log.Info().
		Str("path", path).
		Int("rows", stats.Rows).
		Int("extracted", stats.Extracted).
		Int("skipped", stats.Skipped).
		Int("added", added).
		Int("pool_size", pool.Count()).
		Msg("Import complete")
}
