package model

import (
	"errors"
	"strings"
	"time"
)

type RoleType string

const (
	RoleOwner  RoleType = "OWNER"
	RoleMember RoleType = "MEMBER"
	RoleUser   RoleType = "USER"
	RoleAdmin  RoleType = "ADMIN"
)

type Role struct {
	ID   string   `json:"id"`
	Role RoleType `json:"role"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Photo     string    `json:"photo"`
	PhotoURL  string    `json:"photo_url"`
	RoleID    string    `json:"role_id"`
	Role      *Role     `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the subset of a user that other users may see.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Photo     string    `json:"-"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type PasswordReset struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	PhotoURL  string         `json:"photo_url"`
	CreatedAt time.Time      `json:"created_at"`
	Groups    []ProfileGroup `json:"groups"`
}

// ProfileGroup is a group the profile owner belongs to, with the time they joined it.
type ProfileGroup struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Photo    string    `json:"-"`
	PhotoURL string    `json:"photo_url"`
	Type     GroupType `json:"type"`
	JoinedAt time.Time `json:"joined_at"`
}

type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Photo    string
}

func (r SignUpRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return errors.New("valid email is required")
	}
	if len(r.Password) < 5 {
		return errors.New("password must be at least 5 characters")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}
