package models

import "time"

// RolePreference remembers the role a user was last acting as, so a
// multi-role user lands back in the same role on their next login instead of
// the priority default.
type RolePreference struct {
	Username   string    `gorm:"primary_key;size:255" json:"username"`
	ActiveRole string    `gorm:"not null" json:"activeRole"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
