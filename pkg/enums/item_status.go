package enums

import "fmt"

// ItemStatus tracks whether an inventory item is assigned or sitting in stock.
type ItemStatus string

const (
	ItemStatusActive ItemStatus = "active"
	ItemStatusStock  ItemStatus = "stock"
)

var validItemStatuses = []ItemStatus{
	ItemStatusActive,
	ItemStatusStock,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// DeriveItemStatus returns the status implied by an assignment. An item
// assigned to a person is active; an unassigned item is stock.
func DeriveItemStatus(assigned bool) ItemStatus {
	if assigned {
		return ItemStatusActive
	}
	return ItemStatusStock
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
