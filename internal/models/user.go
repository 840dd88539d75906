package models

import "time"

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Credentials is the register/login payload. Both JSON and form bodies bind to it.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
