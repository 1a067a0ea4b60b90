package repository

import (
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
)

type GroupEntity struct {
	pg.Model
	Name      string              `gorm:"column:name;not null"`
	About     string              `gorm:"column:about;not null;default:''"`
	Photo     string              `gorm:"column:photo;not null;default:''"`
	Price     int64               `gorm:"column:price;not null;default:0"`
	Benefit   string              `gorm:"column:benefit;not null;default:''"`
	Type      string              `gorm:"column:type;not null"`
	RoomID    string              `gorm:"column:room_id;not null;uniqueIndex"`
	Room      *RoomEntity         `gorm:"foreignKey:RoomID"`
	Assets    []*GroupAssetEntity `gorm:"foreignKey:GroupID"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (GroupEntity) TableName() string {
	return "groups"
}

type GroupAssetEntity struct {
	pg.Model
	Filename string `gorm:"column:filename;not null"`
	GroupID  string `gorm:"column:group_id;not null;index"`
}

func (GroupAssetEntity) TableName() string {
	return "group_assets"
}

func toGroupEntity(m *model.Group) *GroupEntity {
	if m == nil {
		return nil
	}
	return &GroupEntity{
		Model:     pg.Model{ID: m.ID},
		Name:      m.Name,
		About:     m.About,
		Photo:     m.Photo,
		Price:     m.Price,
		Benefit:   m.Benefit,
		Type:      string(m.Type),
		RoomID:    m.RoomID,
		CreatedAt: m.CreatedAt,
	}
}

func toGroupModel(e *GroupEntity) *model.Group {
	if e == nil {
		return nil
	}
	m := &model.Group{
		ID:        e.ID,
		Name:      e.Name,
		About:     e.About,
		Photo:     e.Photo,
		Price:     e.Price,
		Benefit:   e.Benefit,
		Type:      model.GroupType(e.Type),
		RoomID:    e.RoomID,
		Assets:    toGroupAssetModels(e.Assets),
		CreatedAt: e.CreatedAt,
	}
	if e.Room != nil {
		m.OwnerID = e.Room.CreatedBy
	}
	return m
}

func toGroupAssetModel(e *GroupAssetEntity) *model.GroupAsset {
	if e == nil {
		return nil
	}
	return &model.GroupAsset{
		ID:       e.ID,
		Filename: e.Filename,
		GroupID:  e.GroupID,
	}
}

func toGroupAssetModels(entities []*GroupAssetEntity) []model.GroupAsset {
	if entities == nil {
		return nil
	}
	models := make([]model.GroupAsset, len(entities))
	for i, e := range entities {
		models[i] = *toGroupAssetModel(e)
	}
	return models
}
