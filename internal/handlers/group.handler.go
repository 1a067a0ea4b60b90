package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/community-gateway/internal/model"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
)

type GroupService interface {
	DiscoverGroups(ctx context.Context, name string) ([]*model.GroupSummary, error)
	DiscoverPeople(ctx context.Context, name, excludeUserID string) ([]*model.PublicUser, error)
	UpsertFreeGroup(ctx context.Context, req model.GroupFreeRequest, userID, photo, groupID string) (*model.Group, error)
	UpsertPaidGroup(ctx context.Context, req model.GroupPaidRequest, userID, photo string, assets []string, groupID string) (*model.Group, error)
	GetGroupDetail(ctx context.Context, id string) (*model.GroupDetail, error)
	GetMyGroupDetail(ctx context.Context, id, userID string) (*model.GroupDetail, error)
	GetMyOwnGroups(ctx context.Context, userID string) (*model.OwnGroupsDashboard, error)
	JoinFreeGroup(ctx context.Context, groupID, userID string) error
	DeleteGroupAsset(ctx context.Context, assetID, userID string) error
}

type GroupHandler struct {
	svc GroupService
}

func RegisterGroupRoutes(e *router.Group, h *GroupHandler) {
	e.GET("/groups", h.DiscoverGroups)
	e.GET("/people", h.DiscoverPeople)
	e.POST("/groups/free", h.CreateFreeGroup)
	e.PUT("/groups/free/{id}", h.UpdateFreeGroup)
	e.POST("/groups/paid", h.CreatePaidGroup)
	e.PUT("/groups/paid/{id}", h.UpdatePaidGroup)
	e.GET("/groups/detail/{id}", h.GetGroupDetail)
	e.POST("/groups/join/{id}", h.JoinFreeGroup)
	e.DELETE("/groups/assets/{id}", h.DeleteGroupAsset)
	e.GET("/my-groups", h.GetMyGroups)
	e.GET("/my-groups/{id}", h.GetMyGroupDetail)
}

func NewGroupHandler(groupService GroupService) *GroupHandler {
	return &GroupHandler{
		svc: groupService,
	}
}

type freeGroupRequest struct {
	Name  string `json:"name"`
	About string `json:"about"`
	Photo string `json:"photo"`
}

type paidGroupRequest struct {
	Name    string   `json:"name"`
	About   string   `json:"about"`
	Photo   string   `json:"photo"`
	Price   int64    `json:"price"`
	Benefit string   `json:"benefit"`
	Assets  []string `json:"assets"`
}

func (h *GroupHandler) DiscoverGroups(ctx *xhttp.RequestCtx) {
	groups, err := h.svc.DiscoverGroups(ctx, query(ctx, "name"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, groups)
}

func (h *GroupHandler) DiscoverPeople(ctx *xhttp.RequestCtx) {
	// anonymous callers see everyone
	self := string(ctx.Request.Header.Peek(UserIDHeader))
	people, err := h.svc.DiscoverPeople(ctx, query(ctx, "name"), self)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, people)
}

func (h *GroupHandler) CreateFreeGroup(ctx *xhttp.RequestCtx) {
	h.upsertFree(ctx, "", xhttp.StatusCreated)
}

func (h *GroupHandler) UpdateFreeGroup(ctx *xhttp.RequestCtx) {
	h.upsertFree(ctx, param(ctx, "id"), xhttp.StatusOK)
}

func (h *GroupHandler) upsertFree(ctx *xhttp.RequestCtx, groupID string, status int) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req freeGroupRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	g, err := h.svc.UpsertFreeGroup(ctx, model.GroupFreeRequest{Name: req.Name, About: req.About}, userID, req.Photo, groupID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, status, g)
}

func (h *GroupHandler) CreatePaidGroup(ctx *xhttp.RequestCtx) {
	h.upsertPaid(ctx, "", xhttp.StatusCreated)
}

func (h *GroupHandler) UpdatePaidGroup(ctx *xhttp.RequestCtx) {
	h.upsertPaid(ctx, param(ctx, "id"), xhttp.StatusOK)
}

func (h *GroupHandler) upsertPaid(ctx *xhttp.RequestCtx, groupID string, status int) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req paidGroupRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p := model.GroupPaidRequest{
		Name:    req.Name,
		About:   req.About,
		Price:   req.Price,
		Benefit: req.Benefit,
	}
	g, err := h.svc.UpsertPaidGroup(ctx, p, userID, req.Photo, req.Assets, groupID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, status, g)
}

func (h *GroupHandler) GetGroupDetail(ctx *xhttp.RequestCtx) {
	d, err := h.svc.GetGroupDetail(ctx, param(ctx, "id"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

func (h *GroupHandler) JoinFreeGroup(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := h.svc.JoinFreeGroup(ctx, param(ctx, "id"), userID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, messageResponse{Message: "joined"})
}

func (h *GroupHandler) DeleteGroupAsset(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := h.svc.DeleteGroupAsset(ctx, param(ctx, "id"), userID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, messageResponse{Message: "asset deleted"})
}

func (h *GroupHandler) GetMyGroups(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	d, err := h.svc.GetMyOwnGroups(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

func (h *GroupHandler) GetMyGroupDetail(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	d, err := h.svc.GetMyGroupDetail(ctx, param(ctx, "id"), userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}
