// Package model holds the payloads exchanged with the compliance backend.
package model

// User is a subject under investigation.
type User struct {
	CreatedAt Timestamp `json:"created_at"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Country   string    `json:"country"`
	ID        int       `json:"id"`
}
