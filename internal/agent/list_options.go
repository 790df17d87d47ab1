package agent

// ListOptions controls how agents are selected when querying the store.
// Results are always ordered by CreatedAt descending (newest first).
type ListOptions struct {
	Limit    int
	Offset   int
	Statuses []Status
}

// applyDefaults sanitizes the options and fills in default values.
func (opts *ListOptions) applyDefaults() {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 200 {
		opts.Limit = 200
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	opts.Statuses = normalizeStatuses(opts.Statuses)
}

func (opts ListOptions) matches(a *Agent) bool {
	if len(opts.Statuses) == 0 {
		return true
	}
	for _, status := range opts.Statuses {
		if a.Status == status {
			return true
		}
	}
	return false
}

func normalizeStatuses(input []Status) []Status {
	if len(input) == 0 {
		return nil
	}
	seen := make(map[Status]struct{}, len(input))
	result := make([]Status, 0, len(input))
	for _, status := range input {
		if !IsValidStatus(status) {
			continue
		}
		if _, ok := seen[status]; ok {
			continue
		}
		seen[status] = struct{}{}
		result = append(result, status)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// FeedOptions controls message feed queries. The feed is ordered by
// CreatedAt descending; Before (exclusive unix timestamp) enables cursor
// pagination while Offset enables plain paging — callers use one or the
// other, not both.
type FeedOptions struct {
	AgentID string
	Limit   int
	Offset  int
	Before  int64
}

func (opts *FeedOptions) applyDefaults() {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 200 {
		opts.Limit = 200
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
}

func (opts FeedOptions) matches(m *Message) bool {
	if opts.AgentID != "" && m.AgentID != opts.AgentID {
		return false
	}
	if opts.Before > 0 && m.CreatedAt >= opts.Before {
		return false
	}
	return true
}
