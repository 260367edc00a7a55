package models

// DeviceToken is the single push token registered for a user.
type DeviceToken struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	DeviceToken string `json:"deviceToken"`
}
