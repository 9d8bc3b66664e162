package entity

import (
	"time"
)

// DefaultEmail is stored when a user registers without an email address.
const DefaultEmail = "?"

// User is the aggregate root for the identity domain.
// Password holds the bcrypt hash and is never serialized.
type User struct {
	ID        int64
	UID       string
	Name      string
	Email     string
	Password  string
	Role      Role
	Pfp       string
	Car       string
	GradeData map[string]any
	APExam    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Map returns the public representation used by handlers and backups.
func (u *User) Map() map[string]any {
	return map[string]any{
		"id":         u.ID,
		"uid":        u.UID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       string(u.Role),
		"pfp":        u.Pfp,
		"car":        u.Car,
		"grade_data": u.GradeData,
		"ap_exam":    u.APExam,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}
