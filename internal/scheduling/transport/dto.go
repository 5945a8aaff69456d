package transport

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityQuery is the query string of GET /availability.
type AvailabilityQuery struct {
	CloserID  string `form:"closerId" validate:"required,uuid"`
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	Category  string `form:"category" validate:"required,category"`
	LeadClass string `form:"leadClass" validate:"omitempty,max=64"`
}

// SlotResponse is one template time on the requested day.
type SlotResponse struct {
	Time              time.Time      `json:"time"`
	StartTime         string         `json:"startTime"`
	Policy            string         `json:"policy"`
	OccupantCount     int            `json:"occupantCount"`
	IsAvailable       bool           `json:"isAvailable"`
	OccupantBreakdown map[string]int `json:"occupantBreakdown,omitempty"`
	SameClassCount    *int           `json:"sameClassCount,omitempty"`
}

// AvailabilityResponse lists a closer's slots for one day. An empty list
// means the closer has no configured hours that day.
type AvailabilityResponse struct {
	CloserID uuid.UUID      `json:"closerId"`
	Date     string         `json:"date"`
	Category string         `json:"category"`
	Slots    []SlotResponse `json:"slots"`
}

// DuplicateQuery is the query string of GET /duplicates.
type DuplicateQuery struct {
	LeadID   string `form:"leadId" validate:"required,uuid"`
	Category string `form:"category" validate:"required,category"`
}

// DuplicateResponse reports the duplicate guard decision.
type DuplicateResponse struct {
	Blocked                  bool       `json:"blocked"`
	BlockType                string     `json:"blockType"`
	Reason                   string     `json:"reason,omitempty"`
	ExistingBookingID        *uuid.UUID `json:"existingBookingId,omitempty"`
	RemainingCooldownSeconds int64      `json:"remainingCooldownSeconds,omitempty"`
}

// SuggestionRequest is the body of POST /suggestions.
type SuggestionRequest struct {
	Qualification map[string]string `json:"qualification" validate:"omitempty,dive,keys,qualkey,endkeys,max=100"`
	Category      string            `json:"category" validate:"required,category"`
	WindowDays    int               `json:"windowDays" validate:"omitempty,min=1"`
	CloserIDs     []uuid.UUID       `json:"closerIds" validate:"omitempty,max=50"`
	Limit         int               `json:"limit" validate:"omitempty,min=1,max=100"`
}

// SuggestionResponse is one ranked candidate.
type SuggestionResponse struct {
	CloserID   uuid.UUID          `json:"closerId"`
	CloserName string             `json:"closerName"`
	Time       time.Time          `json:"time"`
	Policy     string             `json:"policy"`
	Score      int                `json:"score"`
	Reasons    []string           `json:"reasons"`
	Factors    map[string]float64 `json:"factors"`
}

// SuggestionsResponse wraps the ranked list. Total counts all candidates
// before the limit was applied.
type SuggestionsResponse struct {
	Suggestions []SuggestionResponse `json:"suggestions"`
	Total       int                  `json:"total"`
}

// CreateBookingRequest is the body of POST /bookings.
type CreateBookingRequest struct {
	LeadID          uuid.UUID         `json:"leadId" validate:"required"`
	CloserID        uuid.UUID         `json:"closerId" validate:"required"`
	Category        string            `json:"category" validate:"required,category"`
	ScheduledAt     time.Time         `json:"scheduledAt" validate:"required"`
	BookedAt        *time.Time        `json:"bookedAt,omitempty"`
	LeadClass       string            `json:"leadClass,omitempty" validate:"max=64"`
	Notes           string            `json:"notes,omitempty" validate:"max=4000"`
	ParentBookingID *uuid.UUID        `json:"parentBookingId,omitempty"`
	Qualification   map[string]string `json:"qualification,omitempty" validate:"omitempty,dive,keys,qualkey,endkeys,max=100"`
	Override        bool              `json:"override"`
}

// RescheduleBookingRequest is the body of POST /bookings/:id/reschedule.
type RescheduleBookingRequest struct {
	NewScheduledAt time.Time  `json:"newScheduledAt" validate:"required"`
	NewCloserID    *uuid.UUID `json:"newCloserId,omitempty"`
	LeadClass      *string    `json:"leadClass,omitempty" validate:"omitempty,max=64"`
	Note           string     `json:"note,omitempty" validate:"max=4000"`
}

// TransitionStatusRequest is the body of PATCH /bookings/:id/status.
type TransitionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed no_show cancelled contract_finalized refunded"`
	Note   string `json:"note,omitempty" validate:"max=4000"`
}

// HistoryEntryResponse is one structured history record.
type HistoryEntryResponse struct {
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor,omitempty"`
	Body       string    `json:"body,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// BookingResponse is the API view of a booking. Notes is the derived text
// view; History is the structured source.
type BookingResponse struct {
	ID              uuid.UUID              `json:"id"`
	LeadID          uuid.UUID              `json:"leadId"`
	CloserID        uuid.UUID              `json:"closerId"`
	Category        string                 `json:"category"`
	ScheduledAt     time.Time              `json:"scheduledAt"`
	BookedAt        time.Time              `json:"bookedAt"`
	Status          string                 `json:"status"`
	Policy          string                 `json:"policy"`
	LeadClass       string                 `json:"leadClass,omitempty"`
	Notes           string                 `json:"notes"`
	History         []HistoryEntryResponse `json:"history"`
	ParentBookingID *uuid.UUID             `json:"parentBookingId,omitempty"`
	Qualification   map[string]string      `json:"qualification,omitempty"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	Version         int                    `json:"version"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// BookingResultResponse is returned by create and reschedule.
type BookingResultResponse struct {
	Outcome   string             `json:"outcome"`
	Reason    string             `json:"reason,omitempty"`
	Booking   *BookingResponse   `json:"booking,omitempty"`
	Duplicate *DuplicateResponse `json:"duplicate,omitempty"`
}

// LineageResponse is the reschedule chain from root to latest.
type LineageResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// ClosersQuery is the query string of GET /closers.
type ClosersQuery struct {
	Category string `form:"category" validate:"omitempty,category"`
}

// CloserResponse is the roster view of a closer.
type CloserResponse struct {
	ID              uuid.UUID           `json:"id"`
	DisplayName     string              `json:"displayName"`
	Active          bool                `json:"active"`
	Categories      []string            `json:"categories"`
	Specializations map[string][]string `json:"specializations,omitempty"`
}

// TemplatesQuery is the query string of GET /closers/:id/templates.
type TemplatesQuery struct {
	Weekday  *int   `form:"weekday" validate:"required,min=0,max=6"`
	Category string `form:"category" validate:"required,category"`
}

// TemplateResponse is one weekly slot template.
type TemplateResponse struct {
	ID        uuid.UUID `json:"id"`
	Weekday   int       `json:"weekday"`
	Category  string    `json:"category"`
	StartTime string    `json:"startTime"`
	Policy    string    `json:"policy"`
	Timezone  string    `json:"timezone,omitempty"`
}

// ConfigureCloserRequest is the body of PUT /admin/scheduling/closers/:id.
// It replaces the closer's roster entry and all of its templates.
type ConfigureCloserRequest struct {
	DisplayName     string                 `json:"displayName" validate:"required,max=200"`
	Active          *bool                  `json:"active,omitempty"`
	Categories      []string               `json:"categories" validate:"required,min=1,dive,category"`
	Specializations map[string][]string    `json:"specializations,omitempty" validate:"omitempty,dive,keys,qualkey,endkeys,dive,max=100"`
	Timezone        string                 `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Slots           []ConfigureSlotRequest `json:"slots" validate:"dive"`
}

// ConfigureSlotRequest expands to one template per listed time.
type ConfigureSlotRequest struct {
	Weekday  string   `json:"weekday" validate:"required,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	Category string   `json:"category" validate:"required,category"`
	Policy   string   `json:"policy,omitempty" validate:"omitempty,oneof=exclusive shared"`
	Times    []string `json:"times" validate:"required,min=1,dive,hhmm"`
}

// ConfigureCloserResponse echoes the stored configuration.
type ConfigureCloserResponse struct {
	Closer    CloserResponse     `json:"closer"`
	Templates []TemplateResponse `json:"templates"`
}
