package engine

import (
	"fmt"

	"github.com/celerix-dev/looply/pkg/sdk"
)

// Migrate copies every profile of src into dst, replacing what dst holds
// for those profiles. It works in both directions:
// - Embedded -> Remote (moving to a daemon)
// - Remote -> Embedded (offline backup)
func Migrate(src, dst sdk.Store) (int, error) {
	profiles, err := src.Profiles()
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	for i, id := range profiles {
		snap, err := src.Snapshot(id)
		if err != nil {
			return i, fmt.Errorf("failed to export profile %s: %w", id, err)
		}
		if err := dst.Restore(id, snap); err != nil {
			return i, fmt.Errorf("failed to import profile %s: %w", id, err)
		}
	}
	return len(profiles), nil
}
