package handler

import (
	"net/http"
	"strings"
	"time"

	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/booking"
	"closer_scheduling_backend/internal/scheduling/catalog"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/duplicates"
	"closer_scheduling_backend/internal/scheduling/ranking"
	"closer_scheduling_backend/internal/scheduling/transport"
	"closer_scheduling_backend/platform/apperr"
	"closer_scheduling_backend/platform/httpkit"
	"closer_scheduling_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"
)

// Settings are the request defaults the handler applies.
type Settings struct {
	DefaultTimezone string
	WindowDays      int
	MaxWindowDays   int
}

// Deps are the services behind the scheduling routes.
type Deps struct {
	Catalog  *catalog.Service
	Writer   catalog.Writer
	Resolver *availability.Resolver
	Guard    *duplicates.Guard
	Ranker   *ranking.Ranker
	Bookings *booking.Service
	Val      *validator.Validator
	Settings Settings
}

// Handler handles HTTP requests for scheduling
type Handler struct {
	catalog  *catalog.Service
	writer   catalog.Writer
	resolver *availability.Resolver
	guard    *duplicates.Guard
	ranker   *ranking.Ranker
	bookings *booking.Service
	val      *validator.Validator
	settings Settings
}

// New creates a new scheduling handler
func New(d Deps) *Handler {
	return &Handler{
		catalog:  d.Catalog,
		writer:   d.Writer,
		resolver: d.Resolver,
		guard:    d.Guard,
		ranker:   d.Ranker,
		bookings: d.Bookings,
		val:      d.Val,
		settings: d.Settings,
	}
}

// RegisterRoutes registers the scheduling routes. mutations wrap the routes
// that write bookings.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mutations ...gin.HandlerFunc) {
	rg.GET("/availability", h.Availability)
	rg.GET("/duplicates", h.CheckDuplicate)
	rg.POST("/suggestions", h.Suggest)

	rg.GET("/closers", h.ListClosers)
	rg.GET("/closers/:id/templates", h.ListTemplates)

	rg.GET("/bookings/:id", h.GetBooking)
	rg.GET("/bookings/:id/lineage", h.Lineage)

	writes := rg.Group("", mutations...)
	writes.POST("/bookings", h.CreateBooking)
	writes.POST("/bookings/:id/reschedule", h.Reschedule)
	writes.PATCH("/bookings/:id/status", h.TransitionStatus)
}

// RegisterAdminRoutes registers the administrator-only routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/bookings/:id", h.RemoveBooking)
	rg.PUT("/closers/:id", h.ConfigureCloser)
}

// Availability handles GET /api/v1/scheduling/availability
func (h *Handler) Availability(c *gin.Context) {
	var q transport.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(q)) {
		return
	}

	closerID, err := uuid.Parse(q.CloserID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	date, err := domain.ParseDate(q.Date)
	if httpkit.HandleError(c, asValidation(err)) {
		return
	}
	category, _ := domain.ParseCategory(q.Category)
	leadClass := strings.TrimSpace(q.LeadClass)

	slots, err := h.resolver.Resolve(c.Request.Context(), closerID, date, category, leadClass)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AvailabilityResponse{
		CloserID: closerID,
		Date:     date.String(),
		Category: category.String(),
		Slots:    transport.ToSlotResponses(slots, leadClass != ""),
	})
}

// CheckDuplicate handles GET /api/v1/scheduling/duplicates
func (h *Handler) CheckDuplicate(c *gin.Context) {
	var q transport.DuplicateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(q)) {
		return
	}

	leadID, err := uuid.Parse(q.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	category, _ := domain.ParseCategory(q.Category)

	decision, err := h.guard.Check(c.Request.Context(), leadID, category)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToDuplicateResponse(decision))
}

// Suggest handles POST /api/v1/scheduling/suggestions
func (h *Handler) Suggest(c *gin.Context) {
	var req transport.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	window := req.WindowDays
	if window == 0 {
		window = h.settings.WindowDays
	}
	if h.settings.MaxWindowDays > 0 && window > h.settings.MaxWindowDays {
		httpkit.HandleError(c, apperr.Validation("windowDays exceeds the configured maximum"))
		return
	}
	category, _ := domain.ParseCategory(req.Category)

	suggestions, err := h.ranker.Rank(c.Request.Context(), ranking.Input{
		Qualification: domain.QualificationSnapshot(req.Qualification).Clone(),
		Category:      category,
		WindowDays:    window,
		CloserIDs:     req.CloserIDs,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	total := len(suggestions)
	if req.Limit > 0 && len(suggestions) > req.Limit {
		suggestions = suggestions[:req.Limit]
	}
	resp := transport.SuggestionsResponse{
		Suggestions: make([]transport.SuggestionResponse, 0, len(suggestions)),
		Total:       total,
	}
	for _, s := range suggestions {
		resp.Suggestions = append(resp.Suggestions, transport.ToSuggestionResponse(s))
	}
	httpkit.OK(c, resp)
}

// ListClosers handles GET /api/v1/scheduling/closers
func (h *Handler) ListClosers(c *gin.Context) {
	var q transport.ClosersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(q)) {
		return
	}

	var (
		closers []domain.Closer
		err     error
	)
	if q.Category == "" {
		closers, err = h.catalog.ListClosers(c.Request.Context())
	} else {
		category, _ := domain.ParseCategory(q.Category)
		closers, err = h.catalog.ListEligibleClosers(c.Request.Context(), category)
	}
	if httpkit.HandleError(c, err) {
		return
	}

	resp := make([]transport.CloserResponse, 0, len(closers))
	for _, closer := range closers {
		resp = append(resp, transport.ToCloserResponse(closer))
	}
	httpkit.OK(c, resp)
}

// ListTemplates handles GET /api/v1/scheduling/closers/:id/templates
func (h *Handler) ListTemplates(c *gin.Context) {
	closerID, ok := parseID(c)
	if !ok {
		return
	}
	var q transport.TemplatesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(q)) {
		return
	}
	category, _ := domain.ParseCategory(q.Category)

	if _, err := h.catalog.GetCloser(c.Request.Context(), closerID); httpkit.HandleError(c, err) {
		return
	}
	templates, err := h.catalog.TemplatesFor(c.Request.Context(), closerID, time.Weekday(*q.Weekday), category)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToTemplateResponses(templates))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func asValidation(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Validation(err.Error())
}
