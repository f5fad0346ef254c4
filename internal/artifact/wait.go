package artifact

import (
	"context"
	"fmt"
	"time"

	"pricing-pipeline/pkg/models"
)

// DefaultPollInterval is how often Wait implementations re-check a version.
const DefaultPollInterval = 500 * time.Millisecond

// PollCommitted calls fetch until the version it returns is committed with the
// expected digest, the fetch fails, or ctx is done.
func PollCommitted(ctx context.Context, v *models.ArtifactVersion, interval time.Duration, fetch func(ctx context.Context, id string) (*models.ArtifactVersion, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		current, err := fetch(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", v.Ref(), err)
		}
		if current.State == models.ArtifactStateCommitted {
			if v.Digest != "" && current.Digest != v.Digest {
				return fmt.Errorf("%s: %w", v.Ref(), ErrDigestMismatch)
			}
			*v = *current
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
