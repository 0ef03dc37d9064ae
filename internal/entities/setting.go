package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Rating reconciliation run status
	SettingKeyReconcileLastAt      = "reconcile_last_at"
	SettingKeyReconcileLastStatus  = "reconcile_last_status"
	SettingKeyReconcileLastMessage = "reconcile_last_message"
	SettingKeyReconcileLastChanged = "reconcile_last_changed"
)

// Rating reconciliation overrides
const (
	SettingKeyReconcileEnabled  = "reconcile_enabled"
	SettingKeyReconcileSchedule = "reconcile_schedule"
)
