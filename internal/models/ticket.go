package models

// Ticket is a registration for one event, unique per (event, email).
type Ticket struct {
	Base
	EventID           int64   `json:"event_id"  gorm:"not null;uniqueIndex:idx_tickets_event_email,priority:1"`
	Email             string  `json:"email"     gorm:"size:191;not null;uniqueIndex:idx_tickets_event_email,priority:2;index"`
	Name              string  `json:"name"      gorm:"size:191;not null"`
	Confirmed         bool    `json:"confirmed" gorm:"not null;default:false"`
	ConfirmationToken *string `json:"-"         gorm:"size:64;uniqueIndex"`
	Subscribe         bool    `json:"subscribe" gorm:"not null;default:false"`
}

func (Ticket) TableName() string { return "tickets" }
