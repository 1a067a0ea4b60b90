package model

import (
	"errors"
	"strings"
	"time"
)

type GroupType string

const (
	GroupFree GroupType = "FREE"
	GroupPaid GroupType = "PAID"
)

type Group struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	About     string       `json:"about"`
	Photo     string       `json:"photo"`
	PhotoURL  string       `json:"photo_url"`
	Price     int64        `json:"price"`
	Benefit   string       `json:"benefit,omitempty"`
	Type      GroupType    `json:"type"`
	RoomID    string       `json:"room_id"`
	OwnerID   string       `json:"owner_id,omitempty"`
	Assets    []GroupAsset `json:"assets,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type GroupAsset struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	FileURL  string `json:"file_url,omitempty"`
	GroupID  string `json:"group_id"`
}

// GroupSummary is a discovery listing row.
type GroupSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	About        string    `json:"about"`
	Photo        string    `json:"-"`
	PhotoURL     string    `json:"photo_url"`
	Type         GroupType `json:"type"`
	TotalMembers int64     `json:"total_members"`
}

type GroupDetail struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	About        string         `json:"about"`
	PhotoURL     string         `json:"photo_url"`
	Type         GroupType      `json:"type"`
	Price        int64          `json:"price"`
	Benefit      string         `json:"benefit,omitempty"`
	Assets       []GroupAsset   `json:"assets"`
	Members      []DetailMember `json:"members"`
	TotalMembers int64          `json:"total_members"`
}

type DetailMember struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Photo    string    `json:"-"`
	PhotoURL string    `json:"photo_url"`
	Role     RoleType  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type OwnGroup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Photo        string    `json:"-"`
	PhotoURL     string    `json:"photo_url"`
	Type         GroupType `json:"type"`
	RoomID       string    `json:"-"`
	TotalMembers int64     `json:"total_members"`
}

type OwnGroupsDashboard struct {
	Lists        []OwnGroup `json:"lists"`
	PaidGroups   int        `json:"paid_groups"`
	FreeGroups   int        `json:"free_groups"`
	TotalMembers int64      `json:"total_members"`
}

type GroupFreeRequest struct {
	Name  string
	About string
}

func (r GroupFreeRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type GroupPaidRequest struct {
	Name    string
	About   string
	Price   int64
	Benefit string
}
