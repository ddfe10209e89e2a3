package domain

// SearchStatus classifies the outcome of a paginated date-window search.
// It replaces exception-style control flow for "no data" vs "brand unknown"
// vs "vendor unavailable": callers can distinguish the cases without
// inspecting errors.
type SearchStatus int

const (
	// SearchFound means at least one qualifying item was returned.
	SearchFound SearchStatus = iota
	// SearchEmpty means the search completed but no item matched the date.
	SearchEmpty
	// SearchNotFound means the requested entity (brand/publication) does not
	// exist in the vendor catalog. Recoverable; the caller moves on.
	SearchNotFound
	// SearchError means the search aborted on a transient vendor failure.
	// Accumulated partial results are still usable.
	SearchError
)

func (s SearchStatus) String() string {
	switch s {
	case SearchFound:
		return "found"
	case SearchEmpty:
		return "empty"
	case SearchNotFound:
		return "not_found"
	case SearchError:
		return "error"
	default:
		return "unknown"
	}
}
