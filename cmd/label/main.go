// Package main provides the interactive labeling loop.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/internal/accumulator"
	"github.com/guestradar/guestradar/internal/config"
	"github.com/guestradar/guestradar/internal/embedding"
	"github.com/guestradar/guestradar/internal/engine"
	"github.com/guestradar/guestradar/internal/store"
	"github.com/guestradar/guestradar/internal/vector/sqlitevec"
	"github.com/guestradar/guestradar/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Prompts use stdout, so log to stderr.
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	log.Info().Str("version", Version).Msg("Starting guestradar labeling session")

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}
	cfg := config.Get()

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

	svc, err := embedding.NewService(cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.EmbeddingModel).
			Msg("Failed to initialize embedding model")
	}
	defer svc.Close()

	vectors, err := sqlitevec.NewClient(sqlitevec.Config{
		Path:         cfg.VectorCachePath,
		ModelVersion: svc.Version(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Embedding cache unavailable, continuing without it")
	} else {
		defer vectors.Close()
	}

	acc := accumulator.New(examples, cfg.TriggerInterval)
	eng := newEngine(acc, candidates, suggestions, svc, vectors, cfg)

	if err := runSession(context.Background(), eng, acc, candidates, labels, suggestions,
		os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Labeling session failed")
	}

	log.Info().
		Int("labels", labels.Count()).
		Int("examples", examples.Count()).
		Int("suggestions", suggestions.Count()).
		Msg("Labeling session complete")
}

// newEngine assembles the suggestion engine. vectors may be nil when the
// cache failed to open.
func newEngine(acc *accumulator.Accumulator, candidates *store.CandidateStore,
	suggestions *store.SuggestionStore, svc *embedding.Service,
	vectors *sqlitevec.Client, cfg *config.Config) *engine.Engine {

	var cache engine.VectorCache
	if vectors != nil {
		cache = vectors
	}
	return engine.New(acc, candidates, suggestions, embedding.NewCache(svc), cache,
		engine.Options{
			SimilarityThreshold: cfg.SimilarityThreshold,
			TopK:                cfg.TopK,
		})
}

// sessionStats counts this session's decisions for the end-of-session
// breakdown.
type sessionStats struct {
	counts  map[models.Label]int
	skipped int
}

func newSessionStats() *sessionStats {
	return &sessionStats{counts: make(map[models.Label]int)}
}

func (s *sessionStats) total() int {
	n := s.skipped
	for _, c := range s.counts {
		n += c
	}
	return n
}

// summary renders the per-label count/percentage breakdown.
func (s *sessionStats) summary() string {
	total := s.total()
	if total == 0 {
		return "No phrases reviewed.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %d phrase(s) reviewed.\n", total)
	for _, l := range models.AllLabels {
		if n := s.counts[l]; n > 0 {
			fmt.Fprintf(&b, "  %-6s %4d  (%.1f%%)\n", l, n, 100*float64(n)/float64(total))
		}
	}
	if s.skipped > 0 {
		fmt.Fprintf(&b, "  %-6s %4d  (%.1f%%)\n", "SKIP", s.skipped, 100*float64(s.skipped)/float64(total))
	}
	return b.String()
}

// runSession walks the unlabeled pool one phrase at a time, engine
// suggestions first. It returns nil on quit or end of pool, after printing
// the session breakdown.
func runSession(ctx context.Context, eng *engine.Engine, acc *accumulator.Accumulator,
	candidates *store.CandidateStore, labels *store.LabelStore,
	suggestions *store.SuggestionStore, in io.Reader, out io.Writer) error {

	reader := bufio.NewScanner(in)
	stats := newSessionStats()

	pending := make(map[string]models.Suggestion)
	for _, sg := range suggestions.Pending() {
		pending[models.NormalizePhrase(sg.Phrase)] = sg
	}

	queue := buildQueue(candidates, labels, pending)
	if len(queue) == 0 {
		fmt.Fprintln(out, "Nothing left to label.")
		return nil
	}

	fmt.Fprintf(out, "%d phrases to review. Keys: [G]uest [H]ost [O]ther [M]aybe [+]maybe-and-cycle [S]kip [Q]uit\n\n", len(queue))

	for _, item := range queue {
		sg, suggested := pending[models.NormalizePhrase(item.Phrase)]
		if suggested {
			fmt.Fprintf(out, "* %s  (source: %s, suggested, score %.2f)\n", item.Phrase, item.Source, sg.SimilarityScore)
		} else {
			fmt.Fprintf(out, "  %s  (source: %s)\n", item.Phrase, item.Source)
		}
		fmt.Fprint(out, "> ")

		if !reader.Scan() {
			fmt.Fprint(out, stats.summary())
			return reader.Err()
		}
		key := strings.ToUpper(strings.TrimSpace(reader.Text()))

		switch key {
		case "Q":
			fmt.Fprint(out, stats.summary())
			return nil
		case "S", "":
			stats.skipped++
			continue
		case "M", "+":
			// Uncertain phrases go to the label store too, so they are
			// finished from the annotator's perspective and never come
			// back as someone else's suggestion.
			if err := labels.Add(item.Phrase, models.LabelMaybe, item.Source); err != nil {
				log.Error().Err(err).Str("phrase", item.Phrase).Msg("Failed to record label")
				continue
			}
			stats.counts[models.LabelMaybe]++
			if suggested {
				if err := suggestions.MarkConsumed(item.Phrase, models.LabelMaybe); err != nil {
					log.Warn().Err(err).Str("phrase", item.Phrase).Msg("Failed to mark suggestion consumed")
				}
			}

			result, err := eng.RecordMaybe(ctx, item.Phrase, item.Source)
			if err != nil {
				log.Error().Err(err).Str("phrase", item.Phrase).Msg("Failed to record uncertain label")
				continue
			}
			if result == nil && key == "+" {
				// Forced cycle, without waiting for the interval.
				result, err = eng.RunCycle(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Generation cycle failed")
					continue
				}
			}
			if result != nil {
				printCycle(out, result)
				for _, sg := range result.Suggestions {
					pending[models.NormalizePhrase(sg.Phrase)] = sg
				}
			} else {
				fmt.Fprintf(out, "  (%d more uncertain phrase(s) until the next cycle)\n", acc.UntilTrigger())
			}
		case "G", "H", "O":
			label := keyLabel(key)
			if err := labels.Add(item.Phrase, label, item.Source); err != nil {
				log.Error().Err(err).Str("phrase", item.Phrase).Msg("Failed to record label")
				continue
			}
			stats.counts[label]++
			if suggested {
				if err := suggestions.MarkConsumed(item.Phrase, label); err != nil {
					log.Warn().Err(err).Str("phrase", item.Phrase).Msg("Failed to mark suggestion consumed")
				}
			}
		default:
			fmt.Fprintln(out, "Unknown key, skipping. Use G/H/O/M/+/S/Q.")
		}
	}

	fmt.Fprintln(out, "Pool exhausted.")
	fmt.Fprint(out, stats.summary())
	return nil
}

// buildQueue returns the unlabeled candidates, suggested phrases first so
// the annotator sees the engine's picks before the raw pool.
func buildQueue(candidates *store.CandidateStore, labels *store.LabelStore,
	pending map[string]models.Suggestion) []models.Candidate {

	var suggested, rest []models.Candidate
	for _, c := range candidates.All() {
		if labels.Known(c.Phrase) {
			continue
		}
		if _, ok := pending[models.NormalizePhrase(c.Phrase)]; ok {
			suggested = append(suggested, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(suggested, rest...)
}

func keyLabel(key string) models.Label {
	switch key {
	case "G":
		return models.LabelGuest
	case "H":
		return models.LabelHost
	default:
		return models.LabelOther
	}
}

func printCycle(out io.Writer, result *engine.CycleResult) {
	fmt.Fprintf(out, "\n-- generation cycle: %d new suggestion(s) --\n", result.Accepted)
	for _, sg := range result.Suggestions {
		fmt.Fprintf(out, "   %s  (score %.2f)\n", sg.Phrase, sg.SimilarityScore)
	}
	fmt.Fprintln(out)
}
