package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NameQuery is the "first last" / "either" search used for users and orders.
// A two-word query matches first AND last name, a single word matches either.
type NameQuery struct {
	First string
	Last  string
	Any   string
}

func ParseNameQuery(q string) NameQuery {
	parts := strings.Fields(q)
	switch {
	case len(parts) == 0:
		return NameQuery{}
	case len(parts) == 1:
		return NameQuery{Any: parts[0]}
	default:
		return NameQuery{First: parts[0], Last: parts[1]}
	}
}

func (q NameQuery) IsEmpty() bool {
	return q.First == "" && q.Last == "" && q.Any == ""
}

// Matches applies the query case-insensitively to a first/last name pair.
func (q NameQuery) Matches(first, last string) bool {
	first, last = strings.ToLower(first), strings.ToLower(last)
	if q.Any != "" {
		a := strings.ToLower(q.Any)
		return strings.Contains(first, a) || strings.Contains(last, a)
	}
	return strings.Contains(first, strings.ToLower(q.First)) &&
		strings.Contains(last, strings.ToLower(q.Last))
}
