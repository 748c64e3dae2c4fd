package model

import "time"

// SlotLock is an advisory lock held while a booking for one exact
// (doctor, date-time) slot is being created. The lock id encodes the slot
// coordinates, so a concurrent attempt on the same slot hits a duplicate-key
// error. ExpiresAt is TTL-indexed so abandoned locks clean themselves up.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
