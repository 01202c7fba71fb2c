package planner

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mutaplan/mutaplan/internal/coverage"
	"github.com/mutaplan/mutaplan/pkg/plan"
)

// WarnIfStaticDominates logs a warning when static mutants are
// estimated to dominate the time spent running tests. records and
// classified must come from the same Synthesize call; N is the total
// number of mutants across the whole plan (including early results).
func WarnIfStaticDominates(records []plan.PlanRecord, classified map[string]coverage.Classified, n int, opts plan.Options) {
	if opts.IgnoreStatic || !opts.WarnSlow {
		return
	}

	var staticCount, restCount int
	var tStatic, tRest float64

	for _, r := range records {
		if r.Kind != plan.KindRun {
			continue
		}
		c, ok := classified[r.Mutant.ID]
		if !ok {
			continue
		}
		if c.Class == coverage.ClassStatic {
			staticCount++
			tStatic += r.NetTime
		} else {
			restCount++
			tRest += r.NetTime
		}
	}

	if staticCount == 0 || restCount == 0 {
		return
	}

	costRatio := (2 * tStatic / float64(staticCount)) > (tRest / float64(restCount))
	shareRatio := tStatic / (tStatic + tRest)

	if !costRatio || shareRatio <= 0.4 {
		return
	}

	log.Warn().
		Int("staticMutants", staticCount).
		Int("totalMutants", n).
		Float64("timeShare", shareRatio).
		Msg(fmt.Sprintf(
			`Detected %d static mutants (%.1f%% of total) that are estimated to take %.1f%% of the time running the tests! (disable "warnings.slow" to ignore this warning)`,
			staticCount, 100*float64(staticCount)/float64(n), 100*shareRatio,
		))
}
