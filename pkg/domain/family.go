package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FamilyRole is a member's role inside a family group.
type FamilyRole string

const (
	RoleAdmin  FamilyRole = "ADMIN"
	RoleMember FamilyRole = "MEMBER"
)

// FamilyMember links a user to a family group.
type FamilyMember struct {
	ID            uuid.UUID  `json:"id"`
	FamilyGroupID uuid.UUID  `json:"family_group_id"`
	UserID        string     `json:"user_id"`
	Email         string     `json:"email,omitempty"`
	Role          FamilyRole `json:"role"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FamilyGroup is the household a user belongs to. Membership is server-authoritative.
type FamilyGroup struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	AdminUserID string         `json:"admin_user_id"`
	Members     []FamilyMember `json:"members"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsAdmin reports whether userID administers the group.
func (g FamilyGroup) IsAdmin(userID string) bool {
	return userID != "" && g.AdminUserID == userID
}

// FamilyGroupInput is the payload for creating a family group.
type FamilyGroupInput struct {
	Name string `json:"name"`
}

// Validate checks the input before it is sent.
func (in FamilyGroupInput) Validate() error {
	return validateName("name", in.Name)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AddMemberRequest invites an existing user, by email, into a group.
type AddMemberRequest struct {
	Email string     `json:"email"`
	Role  FamilyRole `json:"role,omitempty"`
}

// Normalize trims and lower-cases the email and defaults the role.
func (r AddMemberRequest) Normalize() AddMemberRequest {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Role == "" {
		r.Role = RoleMember
	}
	return r
}

// Validate checks the input before it is sent.
func (r AddMemberRequest) Validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return invalid("email", "is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "is not a valid address")
	}
	if r.Role != "" && r.Role != RoleAdmin && r.Role != RoleMember {
		return invalid("role", "must be ADMIN or MEMBER")
	}
	return nil
}
