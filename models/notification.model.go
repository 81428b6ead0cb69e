package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification kinds
const (
	NotificationCertificateIssued = "certificate_issued"
)

// Notification is the durable record of a dispatched domain event. The row
// itself is the "persisted" channel; the other delivery flags are
// best-effort and may stay false without invalidating the event.
type Notification struct {
	gorm.Model
	UserID            uint           `json:"user_id" gorm:"index;not null"`
	Kind              string         `json:"kind" gorm:"index;not null"`
	Payload           datatypes.JSON `json:"payload"`
	Persisted         bool           `json:"persisted" gorm:"default:true"`
	RealtimeDelivered bool           `json:"realtime_delivered" gorm:"default:false"`
	EmailDelivered    bool           `json:"email_delivered" gorm:"default:false"`
	IsRead            bool           `json:"is_read" gorm:"default:false"`
	IsDeleted         bool           `gorm:"default:false"`
}
