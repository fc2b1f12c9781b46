package domain

import "time"

// IdleMarker tracks when a staff member last received an opportunity through intake.
// Version increments on every reservation and guards compare-and-set updates.
type IdleMarker struct {
	LastAssignedAt time.Time
	Version        int64
}

// StaffMember models a dealership employee or administrator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Tier         Tier
	DealershipID *string
	Idle         IdleMarker
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permissions derives the granted tokens from the member's tier.
func (s *StaffMember) Permissions() PermissionSet {
	return PermissionsFor(s.Tier)
}

// Identity returns the per-request caller context for this member.
func (s *StaffMember) Identity() Identity {
	return Identity{
		StaffID:      s.ID,
		Email:        s.Email,
		Name:         s.Name,
		Tier:         s.Tier,
		DealershipID: s.DealershipID,
	}
}
