// Package accumulator tracks MAYBE-labeled examples and decides when a
// generation cycle should fire.
package accumulator

import (
	"github.com/rs/zerolog/log"

	"github.com/guestradar/guestradar/internal/store"
	"github.com/guestradar/guestradar/pkg/models"
)

// Accumulator appends uncertain examples to the example store and counts
// them toward the next generation trigger. The counter is the sole trigger
// decision point: it advances by one per recorded example and resets to
// zero when the orchestrating workflow completes a cycle.
type Accumulator struct {
	examples *store.ExampleStore
	interval int
	counter  int
}

// New creates an accumulator over the given example store. interval values
// below 1 fall back to the default. The counter resumes from the persisted
// example count, so quitting with accumulated-but-uncycled examples does not
// push the next trigger further out after a restart.
func New(examples *store.ExampleStore, interval int) *Accumulator {
	if interval < 1 {
		interval = 10
	}
	return &Accumulator{
		examples: examples,
		interval: interval,
		counter:  examples.Count() % interval,
	}
}

// Record appends a new uncertain example and reports whether a generation
// cycle should now fire. A duplicate phrase is not re-recorded and does not
// advance the counter. A storage error is returned alongside the trigger
// decision: the example is still held in memory, so the annotator is never
// blocked by a failed write.
func (a *Accumulator) Record(text, source string) (bool, error) {
	added, err := a.examples.Append(text, source)
	if err != nil && !added {
		// Rejected outright (e.g. empty phrase): nothing recorded.
		return false, err
	}
	if !added {
		log.Debug().Str("text", text).Msg("Phrase already accumulated, counter unchanged")
		return false, nil
	}

	a.counter++
	trigger := a.counter%a.interval == 0
	if trigger {
		log.Info().Int("count", a.counter).Int("interval", a.interval).
			Msg("Accumulation threshold reached, generation cycle due")
	}
	return trigger, err
}

// AllExamples returns the complete accumulated history, not just the current
// cycle's slice: the usefulness of a past example does not decay.
func (a *Accumulator) AllExamples() []models.UncertainExample {
	return a.examples.All()
}

// Counter returns the current trigger counter value.
func (a *Accumulator) Counter() int {
	return a.counter
}

// UntilTrigger returns how many more novel examples must be recorded before
// the next generation cycle fires.
func (a *Accumulator) UntilTrigger() int {
	return a.interval - a.counter%a.interval
}

// ResetCounter zeroes the trigger counter after a completed cycle. The
// example history is untouched.
func (a *Accumulator) ResetCounter() {
	a.counter = 0
}
