package model

import "time"

type NotificationCategory string

const (
	CategoryAppointment NotificationCategory = "appointment"
	CategorySystem      NotificationCategory = "system"
	CategoryReminder    NotificationCategory = "reminder"
)

type Notification struct {
	ID        string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID    string               `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	Title     string               `json:"title" bson:"title" validate:"required,min=1,max=100"`
	Message   string               `json:"message" bson:"message" validate:"required,min=1,max=500"`
	Category  NotificationCategory `json:"category" bson:"category" validate:"required,oneof=appointment system reminder"`
	IsRead    bool                 `json:"is_read" bson:"is_read"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
}
