package core

import "fmt"

// DuplicatePolicy decides how far reference uniqueness reaches.
type DuplicatePolicy string

const (
	// DuplicateGlobal treats a reference as taken forever.
	DuplicateGlobal DuplicatePolicy = "global"
	// DuplicateSameDay only rejects a reference reused within one business date.
	DuplicateSameDay DuplicatePolicy = "day"
)

// ParseDuplicatePolicy maps a configuration value to a policy. Empty means
// DuplicateGlobal.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateGlobal:
		return DuplicateGlobal, nil
	case DuplicateSameDay:
		return DuplicateSameDay, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q", s)
}

// FindDuplicate returns the first payment, in snapshot order, whose
// reference equals reference exactly and whose ID is not excludeID. Under
// DuplicateSameDay only payments filed under businessDate are considered.
func FindDuplicate(ps []Payment, reference, excludeID string, policy DuplicatePolicy, businessDate string) (Payment, bool) {
	for _, p := range ps {
		if p.Reference != reference || (excludeID != "" && p.ID == excludeID) {
			continue
		}
		if policy == DuplicateSameDay && p.BusinessDate() != businessDate {
			continue
		}
		return p, true
	}
	return Payment{}, false
}
