package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quanvu/homestay-reservation/internal/model"
	"github.com/quanvu/homestay-reservation/internal/repository"
)

// BrowseHandler serves the unauthenticated catalog read endpoints.
// Listings are owned by the catalog service; these endpoints expose
// the local read model so clients can pick a listing or session to
// book without a second round trip.
type BrowseHandler struct {
	resources *repository.ResourceRepo
	sessions  *repository.SessionRepo
}

// NewBrowseHandler constructs a BrowseHandler.
func NewBrowseHandler(resources *repository.ResourceRepo, sessions *repository.SessionRepo) *BrowseHandler {
	if resources == nil || sessions == nil {
		panic("nil repository passed to NewBrowseHandler")
	}
	return &BrowseHandler{resources: resources, sessions: sessions}
}

// ListListings handles GET /v1/listings. Supports ?kind=DWELLING or
// ?kind=EXPERIENCE plus limit/offset paging.
func (h *BrowseHandler) ListListings(c echo.Context) error {
	var kind model.ResourceKind
	switch c.QueryParam("kind") {
	case "":
	case string(model.KindDwelling):
		kind = model.KindDwelling
	case string(model.KindExperience):
		kind = model.KindExperience
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown kind"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	items, err := h.resources.ListActive(c.Request().Context(), kind, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load listings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetListing handles GET /v1/listings/:id.
func (h *BrowseHandler) GetListing(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.resources.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load listing"})
	}
	if !res.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": repository.ErrResourceNotFound.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"listing": res})
}

// ListSessions handles GET /v1/listings/:id/sessions and returns the
// upcoming sessions of an experience with their live seat counts, so
// clients can show remaining capacity before the booking attempt.
func (h *BrowseHandler) ListSessions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.resources.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load listing"})
	}
	if res.Kind != model.KindExperience {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing has no sessions"})
	}
	sessions, err := h.sessions.ListByResource(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load sessions"})
	}

	type sessionView struct {
		model.Session
		Remaining uint32 `json:"remaining"`
	}
	items := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		remaining := uint32(0)
		if res.Capacity > s.BookedParticipants {
			remaining = res.Capacity - s.BookedParticipants
		}
		items = append(items, sessionView{Session: s, Remaining: remaining})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "capacity": res.Capacity})
}
