package feeds

import (
	"strconv"

	"threadfeed/query"
)

// Limits bounds how many items a feed request may ask for
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are used when the configuration does not say otherwise
var DefaultLimits = Limits{Default: 20, Max: 50}

// ResolveParams turns the raw sort and limit query parameters into typed values.
// A nil pointer means the parameter was absent.
func ResolveParams(rawSort *string, rawLimit *string, limits Limits) (query.SortType, int, error) {
	sort := query.DefaultSort
	if rawSort != nil {
		parsed, err := query.ParseSortType(*rawSort)
		if err != nil {
			return "", 0, invalidParameter("invalid sort", err)
		}
		sort = parsed
	}

	limit := limits.Default
	if rawLimit != nil {
		parsed, err := strconv.Atoi(*rawLimit)
		if err != nil {
			return "", 0, invalidParameter("invalid limit", err)
		}
		if parsed < 0 {
			return "", 0, invalidParameter("invalid limit", nil)
		}
		limit = parsed
	}

	return sort, clampLimit(limit, limits), nil
}

func clampLimit(limit int, limits Limits) int {
	if limits.Max > 0 && limit > limits.Max {
		return limits.Max
	}
	return limit
}
