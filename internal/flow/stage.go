package flow

import (
	"math/rand/v2"

	"github.com/dshills/criticat/internal/review"
)

// Stage tags a position in the review state machine.
type Stage string

const (
	StageStart      Stage = "start"
	StageExtracting Stage = "extracting"
	StageReviewing  Stage = "reviewing"
	StageNotifying  Stage = "notifying"
	StageDone       Stage = "done"
)

// Next returns the stage that follows s. It performs no I/O.
func Next(s Stage, state review.ControlState) Stage {
	switch s {
	case StageStart:
		return StageExtracting
	case StageExtracting:
		return StageReviewing
	case StageReviewing:
		return ShouldNotify(state)
	default:
		return StageDone
	}
}

// ShouldNotify returns StageNotifying when a complete pull request target is
// configured and at least one provider reported blocking issues.
func ShouldNotify(state review.ControlState) Stage {
	g := state.ProvidersConfig.GitProvider
	if g == nil || !g.Complete() {
		return StageDone
	}
	if !state.Review.AnyIssues() {
		return StageDone
	}
	return StageNotifying
}

// JokeCount returns how many jokes a provider contributes under mode.
// Chaotic mode draws uniformly from 1..3 and ignores the review. A nil rng
// draws from the global source.
func JokeCount(mode review.JokeMode, r review.FormatReview, rng *rand.Rand) int {
	switch mode {
	case review.JokeModeChaotic:
		if rng == nil {
			return 1 + rand.IntN(3)
		}
		return 1 + rng.IntN(3)
	case review.JokeModeDefault:
		if r.HasIssues() {
			return 1
		}
	}
	return 0
}
