package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Writer is the administrative write side of the catalog.
type Writer interface {
	UpsertCloser(ctx context.Context, closer domain.Closer) error
	ReplaceTemplates(ctx context.Context, closerID uuid.UUID, templates []domain.SlotTemplate) error
}

// File is the YAML document accepted by the catalog import.
type File struct {
	Closers []CloserEntry `yaml:"closers"`
}

// CloserEntry describes one closer and the weekly slots they offer.
type CloserEntry struct {
	ID              string              `yaml:"id"`
	Name            string              `yaml:"name"`
	Active          *bool               `yaml:"active"`
	Categories      []string            `yaml:"categories"`
	Specializations map[string][]string `yaml:"specializations"`
	Timezone        string              `yaml:"timezone"`
	Slots           []SlotEntry         `yaml:"slots"`
}

// SlotEntry expands to one template per listed time.
type SlotEntry struct {
	Weekday  string   `yaml:"weekday"`
	Category string   `yaml:"category"`
	Policy   string   `yaml:"policy"`
	Times    []string `yaml:"times"`
}

// ParsedCloser is a validated closer with its templates.
type ParsedCloser struct {
	Closer    domain.Closer
	Templates []domain.SlotTemplate
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// Parse decodes and validates a catalog file. defaultTZ applies to closers
// without a timezone.
func Parse(r io.Reader, defaultTZ string) ([]ParsedCloser, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(file.Closers))
	parsed := make([]ParsedCloser, 0, len(file.Closers))
	for i, entry := range file.Closers {
		pc, err := entry.toDomain(defaultTZ)
		if err != nil {
			return nil, fmt.Errorf("closer #%d: %w", i+1, err)
		}
		if seen[pc.Closer.ID] {
			return nil, fmt.Errorf("closer #%d: duplicate id %s", i+1, pc.Closer.ID)
		}
		seen[pc.Closer.ID] = true
		parsed = append(parsed, pc)
	}
	return parsed, nil
}

// Build validates a single entry with the same rules as Parse.
func Build(entry CloserEntry, defaultTZ string) (ParsedCloser, error) {
	return entry.toDomain(defaultTZ)
}

func (e CloserEntry) toDomain(defaultTZ string) (ParsedCloser, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return ParsedCloser{}, fmt.Errorf("invalid id %q", e.ID)
	}
	if strings.TrimSpace(e.Name) == "" {
		return ParsedCloser{}, fmt.Errorf("name is required")
	}

	tz := e.Timezone
	if tz == "" {
		tz = defaultTZ
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return ParsedCloser{}, fmt.Errorf("invalid timezone %q", tz)
	}

	closer := domain.Closer{
		ID:              id,
		DisplayName:     strings.TrimSpace(e.Name),
		Active:          e.Active == nil || *e.Active,
		Specializations: e.Specializations,
	}
	for _, raw := range e.Categories {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return ParsedCloser{}, err
		}
		closer.Categories = append(closer.Categories, category)
	}

	templates := make([]domain.SlotTemplate, 0)
	unique := make(map[string]bool)
	for _, slot := range e.Slots {
		weekday, ok := weekdays[strings.ToLower(strings.TrimSpace(slot.Weekday))]
		if !ok {
			return ParsedCloser{}, fmt.Errorf("invalid weekday %q", slot.Weekday)
		}
		category, err := domain.ParseCategory(slot.Category)
		if err != nil {
			return ParsedCloser{}, err
		}
		if !closer.Serves(category) {
			return ParsedCloser{}, fmt.Errorf("slots for %s but closer does not serve it", category)
		}
		policyKind := domain.PolicyKind(strings.ToLower(strings.TrimSpace(slot.Policy)))
		if policyKind == "" {
			policyKind = domain.PolicyExclusive
		}
		policy, err := domain.PolicyFor(policyKind)
		if err != nil {
			return ParsedCloser{}, err
		}
		for _, raw := range slot.Times {
			start, err := domain.ParseClockTime(raw)
			if err != nil {
				return ParsedCloser{}, err
			}
			key := fmt.Sprintf("%d|%s|%s", weekday, category, start)
			if unique[key] {
				return ParsedCloser{}, fmt.Errorf("duplicate slot %s %s %s", weekday, category, start)
			}
			unique[key] = true
			templates = append(templates, domain.SlotTemplate{
				ID:        uuid.New(),
				CloserID:  id,
				Weekday:   weekday,
				Category:  category,
				StartTime: start,
				Policy:    policy,
				Timezone:  tz,
			})
		}
	}

	return ParsedCloser{Closer: closer, Templates: templates}, nil
}

// Import writes parsed closers and replaces their templates, then drops the
// read cache so the next lookup sees the new configuration.
func (s *Service) Import(ctx context.Context, w Writer, closers []ParsedCloser) error {
	for _, pc := range closers {
		if err := w.UpsertCloser(ctx, pc.Closer); err != nil {
			return err
		}
		if err := w.ReplaceTemplates(ctx, pc.Closer.ID, pc.Templates); err != nil {
			return err
		}
	}
	s.Invalidate()
	return nil
}
