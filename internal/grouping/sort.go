package grouping

import (
	"sort"
	"strings"
)

// SortKey selects the primary ordering of a group list.
type SortKey string

const (
	SortByLatest     SortKey = "latest"
	SortByTotal      SortKey = "total"
	SortByName       SortKey = "name"
	SortByBank       SortKey = "bank"
	SortByConfidence SortKey = "confidence"
)

// ParseSortKey maps a user-supplied string to a SortKey, defaulting to
// latest-first ordering.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByTotal:
		return SortByTotal
	case SortByName:
		return SortByName
	case SortByBank:
		return SortByBank
	case SortByConfidence:
		return SortByConfidence
	default:
		return SortByLatest
	}
}

// Sort orders groups in place by the given key and direction. The sort is
// stable and ties always fall back to display name ascending, so sorting
// twice with the same arguments yields an identical order.
func Sort(groups []Group, key SortKey, descending bool) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if less, decided := compare(a, b, key); decided {
			if descending {
				return !less
			}
			return less
		}
		// Secondary key is direction-independent.
		return a.DisplayName < b.DisplayName
	})
}

// compare returns the ascending order of a and b under key. decided is false
// when the primary key ties.
func compare(a, b Group, key SortKey) (less, decided bool) {
	switch key {
	case SortByTotal:
		if a.TotalCents != b.TotalCents {
			return a.TotalCents < b.TotalCents, true
		}
	case SortByName:
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName, true
		}
	case SortByBank:
		if a.PrimaryBank != b.PrimaryBank {
			return a.PrimaryBank < b.PrimaryBank, true
		}
	case SortByConfidence:
		if a.AverageConfidence != b.AverageConfidence {
			return a.AverageConfidence < b.AverageConfidence, true
		}
	default: // SortByLatest
		if !a.LatestTimestamp.Equal(b.LatestTimestamp) {
			return a.LatestTimestamp.Before(b.LatestTimestamp), true
		}
	}
	return false, false
}
