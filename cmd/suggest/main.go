// Package main provides a one-shot generation cycle over the persisted
// state, for resuming after an interrupted session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/internal/accumulator"
	"github.com/guestradar/guestradar/internal/config"
	"github.com/guestradar/guestradar/internal/embedding"
	"github.com/guestradar/guestradar/internal/engine"
	"github.com/guestradar/guestradar/internal/store"
	"github.com/guestradar/guestradar/internal/vector/sqlitevec"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	threshold := flag.Float64("threshold", 0, "Override similarity threshold (0 = configured value)")
	topK := flag.Int("top-k", 0, "Override suggestion cap (0 = configured value)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}
	cfg := config.Get()
	if *threshold != 0 {
		cfg.SimilarityThreshold = *threshold
	}
	if *topK > 0 {
		cfg.TopK = *topK
	}

	examples, err := store.OpenExampleStore(config.ExamplesPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open example store")
	}
	candidates, err := store.OpenCandidateStore(config.CandidatesPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open candidate store")
	}
	labels, err := store.OpenLabelStore(config.LabelsPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open label store")
	}
	suggestions, err := store.OpenSuggestionStore(config.SuggestionsPath(), labels)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open suggestion store")
	}

	if examples.Count() == 0 {
		log.Info().Msg("No uncertain examples recorded yet, nothing to do")
		return
	}

	svc, err := embedding.NewService(cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.EmbeddingModel).
			Msg("Failed to initialize embedding model")
	}
	defer svc.Close()

	var cache engine.VectorCache
	vectors, err := sqlitevec.NewClient(sqlitevec.Config{
		Path:         cfg.VectorCachePath,
		ModelVersion: svc.Version(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Embedding cache unavailable, continuing without it")
	} else {
		defer vectors.Close()
		cache = vectors
	}

	acc := accumulator.New(examples, cfg.TriggerInterval)
	eng := engine.New(acc, candidates, suggestions, embedding.NewCache(svc), cache,
		engine.Options{
			SimilarityThreshold: cfg.SimilarityThreshold,
			TopK:                cfg.TopK,
		})

	result, err := eng.RunCycle(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Generation cycle failed")
	}

	for _, sg := range result.Suggestions {
		fmt.Printf("%s\t%.4f\t%s\n", sg.Phrase, sg.SimilarityScore, sg.Source)
	}
	if result.Accepted == 0 {
		log.Info().Msg("No new suggestions this cycle")
	}
}
