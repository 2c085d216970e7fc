// Package revocation keeps signatures of logged-out tokens until the tokens
// would have expired anyway.
package revocation

import (
	"fmt"
	"time"

	"anchorgate/pkg/platform/sentinel"
)

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
