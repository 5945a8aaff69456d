package transport

import (
	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/duplicates"
	"closer_scheduling_backend/internal/scheduling/ranking"
)

// ToSlotResponses maps resolver output. SameClassCount is only reported when the caller
// asked for a lead class.
func ToSlotResponses(slots []availability.SlotAvailability, withSameClass bool) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp := SlotResponse{
			Time:              s.Time,
			StartTime:         s.StartTime.String(),
			Policy:            string(s.Policy.Kind()),
			OccupantCount:     s.OccupantCount,
			IsAvailable:       s.IsAvailable,
			OccupantBreakdown: s.OccupantBreakdown,
		}
		if withSameClass && s.Policy.Kind() == domain.PolicyShared {
			n := s.SameClassCount
			resp.SameClassCount = &n
		}
		out = append(out, resp)
	}
	return out
}

func ToDuplicateResponse(d duplicates.Decision) DuplicateResponse {
	resp := DuplicateResponse{
		Blocked:                  d.Blocked,
		BlockType:                string(d.BlockType),
		Reason:                   d.Reason,
		RemainingCooldownSeconds: int64(d.RemainingCooldown.Seconds()),
	}
	if d.Existing != nil {
		id := d.Existing.ID
		resp.ExistingBookingID = &id
	}
	return resp
}

func ToSuggestionResponse(s ranking.Suggestion) SuggestionResponse {
	return SuggestionResponse{
		CloserID:   s.Closer.ID,
		CloserName: s.Closer.DisplayName,
		Time:       s.Time,
		Policy:     string(s.Policy.Kind()),
		Score:      s.Score,
		Reasons:    s.Reasons,
		Factors:    s.Factors,
	}
}

func ToBookingResponse(b domain.Booking) BookingResponse {
	history := make([]HistoryEntryResponse, 0, len(b.History))
	for _, e := range b.History {
		history = append(history, HistoryEntryResponse{
			Kind:       string(e.Kind),
			Actor:      e.Actor,
			Body:       e.Body,
			RecordedAt: e.RecordedAt,
		})
	}
	policy := ""
	if b.Policy != nil {
		policy = string(b.Policy.Kind())
	}
	return BookingResponse{
		ID:              b.ID,
		LeadID:          b.LeadID,
		CloserID:        b.CloserID,
		Category:        b.Category.String(),
		ScheduledAt:     b.ScheduledAt,
		BookedAt:        b.BookedAt,
		Status:          string(b.Status),
		Policy:          policy,
		LeadClass:       b.LeadClass,
		Notes:           b.NotesView(),
		History:         history,
		ParentBookingID: b.ParentBookingID,
		Qualification:   b.Qualification,
		CompletedAt:     b.CompletedAt,
		Version:         b.Version,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func ToCloserResponse(c domain.Closer) CloserResponse {
	categories := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		categories = append(categories, cat.String())
	}
	return CloserResponse{
		ID:              c.ID,
		DisplayName:     c.DisplayName,
		Active:          c.Active,
		Categories:      categories,
		Specializations: c.Specializations,
	}
}

func ToTemplateResponses(templates []domain.SlotTemplate) []TemplateResponse {
	out := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, TemplateResponse{
			ID:        t.ID,
			Weekday:   int(t.Weekday),
			Category:  t.Category.String(),
			StartTime: t.StartTime.String(),
			Policy:    string(t.Policy.Kind()),
			Timezone:  t.Timezone,
		})
	}
	return out
}
