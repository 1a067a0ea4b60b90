package services

import (
	"context"
	"errors"
	"strings"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/internal/storage"
	"github.com/nimasrn/community-gateway/pkg/logger"
)

var (
	ErrNotGroupOwner   = errors.New("only the group owner can change the group")
	ErrInvalidPrice    = errors.New("price of a paid group must be greater than zero")
	ErrBenefitRequired = errors.New("benefit of a paid group is required")
)

type GroupRepository interface {
	Search(ctx context.Context, name string) ([]*model.GroupSummary, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.OwnGroup, error)
	FindByID(ctx context.Context, id string) (*model.Group, error)
	Create(ctx context.Context, g *model.Group) (*model.Group, error)
	Update(ctx context.Context, g *model.Group) error
	AddAssets(ctx context.Context, groupID string, filenames []string) ([]model.GroupAsset, error)
	FindAsset(ctx context.Context, id string) (*model.GroupAsset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// RoomRepository is the membership side of groups and chats.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error)
	AddMember(ctx context.Context, roomID, userID string, role model.RoleType) (*model.RoomMember, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	ListMembers(ctx context.Context, roomID string, roles ...model.RoleType) ([]*model.DetailMember, error)
	CountMembers(ctx context.Context, roomIDs ...string) (int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type PeopleFinder interface {
	SearchByName(ctx context.Context, name, excludeID string) ([]*model.PublicUser, error)
}

type GroupService struct {
	groupRepo GroupRepository
	roomRepo  RoomRepository
	people    PeopleFinder
	files     FileStore
}

func NewGroupService(groupRepo GroupRepository, roomRepo RoomRepository, people PeopleFinder, files FileStore) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		roomRepo:  roomRepo,
		people:    people,
		files:     files,
	}
}

func (s *GroupService) DiscoverGroups(ctx context.Context, name string) ([]*model.GroupSummary, error) {
	groups, err := s.groupRepo.Search(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.PhotoURL = s.files.URL(storage.GroupPhoto, g.Photo)
	}
	return groups, nil
}

func (s *GroupService) DiscoverPeople(ctx context.Context, name, excludeUserID string) ([]*model.PublicUser, error) {
	people, err := s.people.SearchByName(ctx, strings.TrimSpace(name), excludeUserID)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		p.PhotoURL = s.files.URL(storage.UserPhoto, p.Photo)
	}
	return people, nil
}

// UpsertFreeGroup creates a FREE group owned by userID when groupID is empty and
// updates the existing one otherwise.
func (s *GroupService) UpsertFreeGroup(ctx context.Context, req model.GroupFreeRequest, userID, photo, groupID string) (*model.Group, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	g := &model.Group{
		ID:      groupID,
		Name:    req.Name,
		About:   req.About,
		Photo:   photo,
		Type:    model.GroupFree,
		OwnerID: userID,
	}
	if groupID == "" {
		return s.create(ctx, g)
	}
	return s.update(ctx, g, nil)
}

// UpsertPaidGroup is UpsertFreeGroup for PAID groups. Assets are appended to
// the group on both creation and update.
func (s *GroupService) UpsertPaidGroup(ctx context.Context, req model.GroupPaidRequest, userID, photo string, assets []string, groupID string) (*model.Group, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid(errors.New("name is required"))
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if strings.TrimSpace(req.Benefit) == "" {
		return nil, ErrBenefitRequired
	}

	g := &model.Group{
		ID:      groupID,
		Name:    req.Name,
		About:   req.About,
		Photo:   photo,
		Price:   req.Price,
		Benefit: req.Benefit,
		Type:    model.GroupPaid,
		OwnerID: userID,
	}
	if groupID == "" {
		for _, filename := range assets {
			g.Assets = append(g.Assets, model.GroupAsset{Filename: filename})
		}
		return s.create(ctx, g)
	}
	return s.update(ctx, g, assets)
}

func (s *GroupService) create(ctx context.Context, g *model.Group) (*model.Group, error) {
	var created *model.Group
	err := s.roomRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		room, err := s.roomRepo.CreateRoom(ctx, &model.Room{
			Name:      g.Name,
			IsGroup:   true,
			CreatedBy: g.OwnerID,
		})
		if err != nil {
			return err
		}
		if _, err := s.roomRepo.AddMember(ctx, room.ID, g.OwnerID, model.RoleOwner); err != nil {
			return err
		}

		g.RoomID = room.ID
		created, err = s.groupRepo.Create(ctx, g)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.fillURLs(created, true)
	logger.Info("Group created", "group_id", created.ID, "type", created.Type, "owner_id", created.OwnerID)
	return created, nil
}

func (s *GroupService) update(ctx context.Context, g *model.Group, assets []string) (*model.Group, error) {
	existing, err := s.groupRepo.FindByID(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != g.OwnerID {
		return nil, ErrNotGroupOwner
	}
	if existing.Type != g.Type {
		if existing.Type == model.GroupPaid {
			return nil, ErrGroupIsPaid
		}
		return nil, ErrGroupIsFree
	}

	err = s.roomRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.groupRepo.Update(ctx, g); err != nil {
			return err
		}
		if len(assets) == 0 {
			return nil
		}
		_, err := s.groupRepo.AddAssets(ctx, g.ID, assets)
		return err
	})
	if err != nil {
		return nil, err
	}
	if g.Photo != "" {
		s.files.Remove(storage.GroupPhoto, existing.Photo)
	}

	updated, err := s.groupRepo.FindByID(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	s.fillURLs(updated, true)
	return updated, nil
}

// GetGroupDetail is the public view of a group: only the owner is listed and
// asset files are not linked.
func (s *GroupService) GetGroupDetail(ctx context.Context, id string) (*model.GroupDetail, error) {
	g, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, g, false, model.RoleOwner)
}

// GetMyGroupDetail is the owner's view of a group with every member and the
// asset links. Groups owned by someone else are reported as not found.
func (s *GroupService) GetMyGroupDetail(ctx context.Context, id, userID string) (*model.GroupDetail, error) {
	g, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != userID {
		return nil, ErrGroupNotFound
	}
	return s.detail(ctx, g, true)
}

func (s *GroupService) detail(ctx context.Context, g *model.Group, withAssetURLs bool, roles ...model.RoleType) (*model.GroupDetail, error) {
	members, err := s.roomRepo.ListMembers(ctx, g.RoomID, roles...)
	if err != nil {
		return nil, err
	}
	total, err := s.roomRepo.CountMembers(ctx, g.RoomID)
	if err != nil {
		return nil, err
	}

	s.fillURLs(g, withAssetURLs)
	d := &model.GroupDetail{
		ID:           g.ID,
		Name:         g.Name,
		About:        g.About,
		PhotoURL:     g.PhotoURL,
		Type:         g.Type,
		Price:        g.Price,
		Benefit:      g.Benefit,
		Assets:       g.Assets,
		Members:      make([]model.DetailMember, 0, len(members)),
		TotalMembers: total,
	}
	if d.Assets == nil {
		d.Assets = []model.GroupAsset{}
	}
	for _, m := range members {
		m.PhotoURL = s.files.URL(storage.UserPhoto, m.Photo)
		d.Members = append(d.Members, *m)
	}
	return d, nil
}

func (s *GroupService) GetMyOwnGroups(ctx context.Context, userID string) (*model.OwnGroupsDashboard, error) {
	groups, err := s.groupRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	dashboard := &model.OwnGroupsDashboard{Lists: make([]model.OwnGroup, 0, len(groups))}
	roomIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		g.PhotoURL = s.files.URL(storage.GroupPhoto, g.Photo)
		switch g.Type {
		case model.GroupPaid:
			dashboard.PaidGroups++
		case model.GroupFree:
			dashboard.FreeGroups++
		}
		roomIDs = append(roomIDs, g.RoomID)
		dashboard.Lists = append(dashboard.Lists, *g)
	}

	if len(roomIDs) > 0 {
		dashboard.TotalMembers, err = s.roomRepo.CountMembers(ctx, roomIDs...)
		if err != nil {
			return nil, err
		}
	}
	return dashboard, nil
}

// JoinFreeGroup admits userID to a FREE group as MEMBER.
func (s *GroupService) JoinFreeGroup(ctx context.Context, groupID, userID string) error {
	g, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return err
	}

	joined, err := s.roomRepo.IsMember(ctx, g.RoomID, userID)
	if err != nil {
		return err
	}
	if joined {
		return ErrAlreadyJoined
	}
	if g.Type == model.GroupPaid {
		return ErrGroupIsPaid
	}

	if _, err := s.roomRepo.AddMember(ctx, g.RoomID, userID, model.RoleMember); err != nil {
		if errors.Is(err, repository.ErrDuplicateMember) {
			return ErrAlreadyJoined
		}
		return err
	}
	logger.Info("Member joined group", "group_id", groupID, "user_id", userID)
	return nil
}

// DeleteGroupAsset removes the asset file, then its row. Only the owner of
// the asset's group may do so.
func (s *GroupService) DeleteGroupAsset(ctx context.Context, assetID, userID string) error {
	asset, err := s.groupRepo.FindAsset(ctx, assetID)
	if err != nil {
		return err
	}
	g, err := s.groupRepo.FindByID(ctx, asset.GroupID)
	if err != nil {
		return err
	}
	if g.OwnerID != userID {
		return ErrNotGroupOwner
	}
	s.files.Remove(storage.GroupAsset, asset.Filename)
	return s.groupRepo.DeleteAsset(ctx, assetID)
}

func (s *GroupService) fillURLs(g *model.Group, withAssetURLs bool) {
	g.PhotoURL = s.files.URL(storage.GroupPhoto, g.Photo)
	for i := range g.Assets {
		if withAssetURLs {
			g.Assets[i].FileURL = s.files.URL(storage.GroupAsset, g.Assets[i].Filename)
		} else {
			g.Assets[i].FileURL = ""
		}
	}
}
