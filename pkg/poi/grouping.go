package poi

// GroupedHeight returns the height at which importances valid for height
// were computed: the last multiple of interval strictly below height, or 1
// for the first group.
func GroupedHeight(height, interval uint64) (uint64, error) {
	if height < 1 {
		return 0, invalidConfigf("height must be at least 1, got %d", height)
	}
	if interval < 1 {
		return 0, invalidConfigf("grouping interval must be at least 1, got %d", interval)
	}

	grouped := ((height - 1) / interval) * interval
	if grouped == 0 {
		return 1, nil
	}
	return grouped, nil
}
