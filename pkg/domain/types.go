package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the identity returned by the remote API's /auth/me endpoint.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Book is owned by the remote collection; the client only holds transient
// copies that reflect the last successful fetch.
type Book struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Pagination mirrors the list envelope of the book collection endpoint.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ParseRole normalizes a role string, defaulting unknown values to USER.
func ParseRole(role string) Role {
	if Role(role) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}
