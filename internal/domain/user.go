package domain

import "time"

type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleAttendee  Role = "attendee"
)

// User is an account. Organizers manage events; attendees book tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	ProfileInfo  string
	CreatedAt    time.Time
}
