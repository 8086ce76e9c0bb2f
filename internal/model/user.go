package model

import "time"

// Locale is the user's preferred dialogue language.
type Locale string

const (
	LocaleDE Locale = "de"
	LocaleEN Locale = "en"
)

// User represents an authenticated client of the intake platform.
// Credential verification is an external concern (spec §1, §9); the core
// only stores a subject id and the profile fields it owns.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Locale      Locale     `json:"locale"`
	PushToken   *string    `json:"pushToken,omitempty"`
	Timezone    string     `json:"timezone"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
