package models

// NotificationTarget names a channel ("email", "webhook", "redis") and the
// channel-specific destination (address, URL, pub/sub channel).
type NotificationTarget struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
}
