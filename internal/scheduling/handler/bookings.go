package handler

import (
	"net/http"
	"strings"

	"closer_scheduling_backend/internal/scheduling/booking"
	"closer_scheduling_backend/internal/scheduling/catalog"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/transport"
	"closer_scheduling_backend/platform/apperr"
	"closer_scheduling_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// CreateBooking handles POST /api/v1/scheduling/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req transport.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if req.Override && !identity.HasRole(httpkit.RoleAdmin) {
		httpkit.HandleError(c, apperr.Forbidden("only administrators may override the duplicate check"))
		return
	}
	key, ok := h.idempotencyKey(c)
	if !ok {
		return
	}
	category, _ := domain.ParseCategory(req.Category)

	result, err := h.bookings.Create(c.Request.Context(), booking.CreateInput{
		LeadID:          req.LeadID,
		CloserID:        req.CloserID,
		Category:        category,
		ScheduledAt:     req.ScheduledAt,
		BookedAt:        req.BookedAt,
		LeadClass:       req.LeadClass,
		Notes:           req.Notes,
		ParentBookingID: req.ParentBookingID,
		Qualification:   domain.QualificationSnapshot(req.Qualification),
		Override:        req.Override,
		Actor:           identity.Actor(),
		IdempotencyKey:  key,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	writeResult(c, result)
}

// GetBooking handles GET /api/v1/scheduling/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	b, err := h.bookings.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToBookingResponse(b))
}

// Lineage handles GET /api/v1/scheduling/bookings/:id/lineage
func (h *Handler) Lineage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	chain, err := h.bookings.Lineage(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.LineageResponse{Bookings: make([]transport.BookingResponse, 0, len(chain))}
	for _, b := range chain {
		resp.Bookings = append(resp.Bookings, transport.ToBookingResponse(b))
	}
	httpkit.OK(c, resp)
}

// Reschedule handles POST /api/v1/scheduling/bookings/:id/reschedule
func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	key, ok := h.idempotencyKey(c)
	if !ok {
		return
	}

	result, err := h.bookings.Reschedule(c.Request.Context(), booking.RescheduleInput{
		BookingID:      id,
		NewScheduledAt: req.NewScheduledAt,
		NewCloserID:    req.NewCloserID,
		LeadClass:      req.LeadClass,
		Note:           req.Note,
		Actor:          identity.Actor(),
		IdempotencyKey: key,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	writeResult(c, result)
}

// TransitionStatus handles PATCH /api/v1/scheduling/bookings/:id/status
func (h *Handler) TransitionStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	updated, err := h.bookings.TransitionStatus(c.Request.Context(), booking.TransitionInput{
		BookingID: id,
		Status:    domain.Status(req.Status),
		Note:      req.Note,
		Actor:     identity.Actor(),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToBookingResponse(updated))
}

// RemoveBooking handles DELETE /api/v1/admin/scheduling/bookings/:id
func (h *Handler) RemoveBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	removed, err := h.bookings.Remove(c.Request.Context(), id, identity.Actor())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToBookingResponse(removed))
}

// ConfigureCloser handles PUT /api/v1/admin/scheduling/closers/:id
func (h *Handler) ConfigureCloser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ConfigureCloserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	entry := catalog.CloserEntry{
		ID:              id.String(),
		Name:            req.DisplayName,
		Active:          req.Active,
		Categories:      req.Categories,
		Specializations: req.Specializations,
		Timezone:        req.Timezone,
	}
	for _, slot := range req.Slots {
		entry.Slots = append(entry.Slots, catalog.SlotEntry{
			Weekday:  slot.Weekday,
			Category: slot.Category,
			Policy:   slot.Policy,
			Times:    slot.Times,
		})
	}

	parsed, err := catalog.Build(entry, h.settings.DefaultTimezone)
	if httpkit.HandleError(c, asValidation(err)) {
		return
	}
	if err := h.catalog.Import(c.Request.Context(), h.writer, []catalog.ParsedCloser{parsed}); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ConfigureCloserResponse{
		Closer:    transport.ToCloserResponse(parsed.Closer),
		Templates: transport.ToTemplateResponses(parsed.Templates),
	})
}

// idempotencyKey reads and validates the optional Idempotency-Key header.
func (h *Handler) idempotencyKey(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.GetHeader(httpkit.HeaderIdempotencyKey))
	if err := h.val.Var(key, "omitempty,max=128,printascii"); err != nil {
		httpkit.HandleError(c, apperr.Validation("Idempotency-Key must be printable ASCII of at most 128 characters"))
		return "", false
	}
	return key, true
}

func writeResult(c *gin.Context, result booking.Result) {
	resp := transport.BookingResultResponse{
		Outcome: string(result.Outcome),
		Reason:  result.Reason,
	}
	if result.Booking != nil {
		b := transport.ToBookingResponse(*result.Booking)
		resp.Booking = &b
	}
	if result.Duplicate != nil {
		d := transport.ToDuplicateResponse(*result.Duplicate)
		resp.Duplicate = &d
	}

	switch result.Outcome {
	case booking.OutcomeCreated:
		httpkit.JSON(c, http.StatusCreated, resp)
	case booking.OutcomeCapacityExceeded, booking.OutcomeDuplicateBlocked:
		httpkit.JSON(c, http.StatusConflict, resp)
	default:
		httpkit.OK(c, resp)
	}
}
