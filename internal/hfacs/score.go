package hfacs

import (
	"context"
	"math"

	"github.com/linnemanlabs/go-core/log"
)

// LevelScore is the accumulated evidence for one level: the sum of weights
// of its matched tags plus the tags themselves in the order the oracle
// produced them, deduplicated per level.
type LevelScore struct {
	Score int      `json:"score"`
	Tags  []string `json:"tags,omitempty"`
}

// Scores holds the evidence accumulated for all four levels. Every level is
// always present, including zero-scored ones.
type Scores map[Level]LevelScore

// Total returns the sum of all level scores.
func (s Scores) Total() int {
	var total int
	for _, ls := range s {
		total += ls.Score
	}
	return total
}

// Score groups the given tags by level and sums their weights. Tags outside
// the rubric are dropped with a warning; they never score. Tag order within
// a level follows input order, with repeats collapsed.
func (r *Rubric) Score(ctx context.Context, logger log.Logger, tags []string) Scores {
	scores := make(Scores, 4)
	for _, lvl := range Levels() {
		scores[lvl] = LevelScore{}
	}

	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		lvl, weight, ok := r.Lookup(tag)
		if !ok {
			logger.Warn(ctx, "dropping tag not in rubric", "tag", tag)
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true

		ls := scores[lvl]
		ls.Score += weight
		ls.Tags = append(ls.Tags, tag)
		scores[lvl] = ls
	}
	return scores
}

// SelectWinner picks the winning level and its confidence from the scores.
// A zero total yields the NoFault sentinel with confidence 100 and no
// winning level. Ties between levels go to the lowest level number, so the
// outcome is deterministic regardless of map iteration order. Confidence is
// the winning score as a rounded percentage of the total.
func SelectWinner(scores Scores) (category string, winner Level, confidence int) {
	total := scores.Total()
	if total == 0 {
		return NoFault, 0, 100
	}

	winner = LevelUnsafeAct
	best := scores[LevelUnsafeAct].Score
	for _, lvl := range Levels()[1:] {
		if scores[lvl].Score > best {
			winner = lvl
			best = scores[lvl].Score
		}
	}

	confidence = int(math.Round(float64(best) / float64(total) * 100))
	return winner.String(), winner, confidence
}
