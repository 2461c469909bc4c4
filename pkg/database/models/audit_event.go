package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

// Audit actions recorded by the console gateway.
const (
	AuditLogin       = "login"
	AuditLoginFailed = "login_failed"
	AuditLogout      = "logout"
	AuditRoleSwitch  = "role_switch"
	AuditRouteDenied = "route_denied"
)

// AuditEvent is one access-control-relevant event: a login, a logout, a role
// switch, or a denied route. Events are append-only.
type AuditEvent struct {
	ID        string    `gorm:"type:varchar(255);primary_key" json:"id"`
	Username  string    `gorm:"not null;index" json:"username"`
	SessionID string    `gorm:"index" json:"sessionId"`
	Action    string    `gorm:"not null;index" json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate sets the URN ID if not already set
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = session.GenerateAuditURN()
	}
	return nil
}
