package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrAssetNotFound = errors.New("group asset not found")
)

type GroupRepository struct {
	*pg.DB
}

func NewGroupRepository(db *pg.DB) *GroupRepository {
	return &GroupRepository{
		db,
	}
}

type groupCountRow struct {
	ID           string
	Name         string
	About        string
	Photo        string
	Type         string
	RoomID       string
	TotalMembers int64
}

func (r *GroupRepository) withMemberCount(ctx context.Context) *gorm.DB {
	return r.Read(ctx).
		Table(`"groups" AS g`).
		Select("g.id, g.name, g.about, g.photo, g.type, g.room_id, COUNT(rm.id) AS total_members").
		Joins("LEFT JOIN room_members AS rm ON rm.room_id = g.room_id").
		Group("g.id, g.name, g.about, g.photo, g.type, g.room_id, g.created_at")
}

// Search matches groups by a case-insensitive substring of their name.
func (r *GroupRepository) Search(ctx context.Context, name string) ([]*model.GroupSummary, error) {
	var rows []groupCountRow
	err := r.withMemberCount(ctx).
		Where("LOWER(g.name) LIKE LOWER(?)", likePattern(name)).
		Order("g.created_at DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("search groups: %w", err)
	}

	groups := make([]*model.GroupSummary, len(rows))
	for i, row := range rows {
		groups[i] = &model.GroupSummary{
			ID:           row.ID,
			Name:         row.Name,
			About:        row.About,
			Photo:        row.Photo,
			Type:         model.GroupType(row.Type),
			TotalMembers: row.TotalMembers,
		}
	}
	return groups, nil
}

// ListByOwner returns the groups whose room was created by ownerID.
func (r *GroupRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.OwnGroup, error) {
	var rows []groupCountRow
	err := r.withMemberCount(ctx).
		Joins("JOIN rooms AS ro ON ro.id = g.room_id").
		Where("ro.created_by = ?", ownerID).
		Order("g.created_at DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("list own groups: %w", err)
	}

	groups := make([]*model.OwnGroup, len(rows))
	for i, row := range rows {
		groups[i] = &model.OwnGroup{
			ID:           row.ID,
			Name:         row.Name,
			Photo:        row.Photo,
			Type:         model.GroupType(row.Type),
			RoomID:       row.RoomID,
			TotalMembers: row.TotalMembers,
		}
	}
	return groups, nil
}

// FindByID loads the group with its assets. OwnerID is the room creator.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*model.Group, error) {
	var entity GroupEntity
	err := r.Read(ctx).
		Preload("Room").
		Preload("Assets").
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return toGroupModel(&entity), nil
}

// Create stores the group and any assets it carries. The room must exist.
func (r *GroupRepository) Create(ctx context.Context, g *model.Group) (*model.Group, error) {
	entity := toGroupEntity(g)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	created := toGroupModel(entity)
	created.OwnerID = g.OwnerID
	if len(g.Assets) > 0 {
		filenames := make([]string, len(g.Assets))
		for i, a := range g.Assets {
			filenames[i] = a.Filename
		}
		assets, err := r.AddAssets(ctx, entity.ID, filenames)
		if err != nil {
			return nil, err
		}
		created.Assets = assets
	}
	return created, nil
}

// Update writes the editable fields of g. Photo is left untouched when empty.
func (r *GroupRepository) Update(ctx context.Context, g *model.Group) error {
	fields := map[string]any{
		"name":    g.Name,
		"about":   g.About,
		"price":   g.Price,
		"benefit": g.Benefit,
	}
	if g.Photo != "" {
		fields["photo"] = g.Photo
	}

	result := r.Write(ctx).
		Model(&GroupEntity{}).
		Where("id = ?", g.ID).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepository) AddAssets(ctx context.Context, groupID string, filenames []string) ([]model.GroupAsset, error) {
	if len(filenames) == 0 {
		return nil, nil
	}
	entities := make([]*GroupAssetEntity, len(filenames))
	for i, name := range filenames {
		entities[i] = &GroupAssetEntity{Filename: name, GroupID: groupID}
	}
	if err := r.Write(ctx).Create(&entities).Error; err != nil {
		return nil, fmt.Errorf("create group assets: %w", err)
	}
	return toGroupAssetModels(entities), nil
}

func (r *GroupRepository) FindAsset(ctx context.Context, id string) (*model.GroupAsset, error) {
	var entity GroupAssetEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("find group asset: %w", err)
	}
	return toGroupAssetModel(&entity), nil
}

func (r *GroupRepository) DeleteAsset(ctx context.Context, id string) error {
	result := r.Write(ctx).Where("id = ?", id).Delete(&GroupAssetEntity{})
	if result.Error != nil {
		return fmt.Errorf("delete group asset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}
