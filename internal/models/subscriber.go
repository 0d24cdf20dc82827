package models

// Subscriber is a newsletter audience member, keyed by normalized email.
type Subscriber struct {
	Base
	Email             string  `json:"email"     gorm:"size:191;uniqueIndex;not null"`
	Confirmed         bool    `json:"confirmed" gorm:"not null;default:false;index"`
	ConfirmationToken *string `json:"-"         gorm:"size:64;uniqueIndex"`
}

func (Subscriber) TableName() string { return "subscribers" }
