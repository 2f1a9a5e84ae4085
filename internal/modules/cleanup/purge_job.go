// Package cleanup provides data cleanup and maintenance functionality.
package cleanup

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DeletedPurger is the slice of the strategies repository the job needs.
type DeletedPurger interface {
	PurgeDeleted(cutoff time.Time) (int, error)
}

// PurgeJob permanently removes strategies that were soft-deleted longer
// ago than the configured retention. Runs daily.
type PurgeJob struct {
	repo      DeletedPurger
	retention time.Duration
	log       zerolog.Logger
}

// NewPurgeJob creates a new purge job.
func NewPurgeJob(repo DeletedPurger, retentionDays int, log zerolog.Logger) *PurgeJob {
	return &PurgeJob{
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log.With().Str("job", "strategy_purge").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *PurgeJob) Name() string {
	return "strategy_purge"
}

// Run executes the purge.
func (j *PurgeJob) Run() error {
	cutoff := time.Now().Add(-j.retention)

	purged, err := j.repo.PurgeDeleted(cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge deleted strategies: %w", err)
	}

	if purged > 0 {
		j.log.Info().Int("purged", purged).Msg("Purged soft-deleted strategies")
	} else {
		j.log.Debug().Msg("No soft-deleted strategies to purge")
	}
	return nil
}
