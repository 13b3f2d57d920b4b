package reminder

import (
	"time"

	"github.com/rs/zerolog/log"
)

// LogNotifier emits notices to the structured log. The platform adapter that
// pushes messages to holders sits behind the same interface.
type LogNotifier struct{}

func (LogNotifier) LeaseExpired(holder, claimID string) {
	log.Info().Str("holder", holder).Str("claim_id", claimID).Msg("lease expired notice")
}

func (LogNotifier) MilestoneReached(holder, claimID string, percent int, remaining time.Duration) {
	log.Info().Str("holder", holder).Str("claim_id", claimID).Int("percent", percent).Dur("remaining", remaining).Msg("lease milestone notice")
}

func (LogNotifier) ThresholdReached(holder, claimID string, remaining time.Duration) {
	log.Info().Str("holder", holder).Str("claim_id", claimID).Dur("remaining", remaining).Msg("lease countdown notice")
}

func (LogNotifier) TimeRemaining(holder, claimID string, remaining time.Duration) {
	log.Info().Str("holder", holder).Str("claim_id", claimID).Dur("remaining", remaining).Msg("lease time remaining notice")
}
