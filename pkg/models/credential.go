package models

import "github.com/google/uuid"

// Credential is a user's login for one portal. The secret is stored
// encrypted; IsValid is cleared by the engine when a login is rejected.
type Credential struct {
	UserID          uuid.UUID `db:"user_id"          json:"user_id"`
	Portal          string    `db:"portal"           json:"portal"`
	Username        string    `db:"username"         json:"username"`
	EncryptedSecret string    `db:"encrypted_secret" json:"-"`
	IsValid         bool      `db:"is_valid"         json:"is_valid"`
}
