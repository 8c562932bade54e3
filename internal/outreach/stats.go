package outreach

// ComputeStatistics summarizes tracking records. Communities are counted by
// exact location name.
func ComputeStatistics(tracking []TrackingRecord) Statistics {
	stats := Statistics{TotalStops: len(tracking)}
	communities := make(map[string]struct{})

	for _, r := range tracking {
		stats.TotalAttendees += r.Attendees
		stats.TotalServices += len(r.ServicesProvided)
		communities[r.Location] = struct{}{}
	}
	stats.UniqueCommunities = len(communities)

	return stats
}
