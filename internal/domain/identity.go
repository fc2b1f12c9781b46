package domain

// Identity is the already-resolved caller of an operation.
type Identity struct {
	StaffID      string
	Email        string
	Name         string
	Tier         Tier
	DealershipID *string
}

// HasDealership reports whether the caller belongs to a dealership.
func (i Identity) HasDealership() bool {
	return i.DealershipID != nil && *i.DealershipID != ""
}
