package catalog

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
closers:
  - id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e
    name: Sanne de Vries
    categories: [r1, r2]
    specializations:
      income_band: [high]
    slots:
      - weekday: monday
        category: r1
        times: ["14:00", "10:00"]
      - weekday: monday
        category: r2
        policy: shared
        times: ["16:30"]
  - id: 0b7e4d2a-1c3f-4e5a-8b6d-9f0a1b2c3d4e
    name: Ruben
    active: false
    timezone: UTC
    categories: [r1]
`

type countingRepo struct {
	*memstore.Store
	templateCalls atomic.Int32
}

func (r *countingRepo) ListTemplates(ctx context.Context, closerID uuid.UUID, weekday time.Weekday, category domain.Category) ([]domain.SlotTemplate, error) {
	r.templateCalls.Add(1)
	return r.Store.ListTemplates(ctx, closerID, weekday, category)
}

func TestParseCatalogFile(t *testing.T) {
	parsed, err := Parse(strings.NewReader(sampleCatalog), "Europe/Amsterdam")
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	sanne := parsed[0]
	assert.True(t, sanne.Closer.Active)
	assert.True(t, sanne.Closer.Serves(domain.SecondMeeting))
	assert.Equal(t, []string{"high"}, sanne.Closer.Specializations[domain.QualIncomeBand])
	require.Len(t, sanne.Templates, 3)
	assert.Equal(t, "Europe/Amsterdam", sanne.Templates[0].Timezone)
	assert.Equal(t, domain.PolicyShared, sanne.Templates[2].Policy.Kind())

	ruben := parsed[1]
	assert.False(t, ruben.Closer.Active)
	assert.Empty(t, ruben.Templates)
}

func TestParseRejectsInvalidInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": `
closers:
  - id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e
    name: A
    color: blue
`,
		"bad time": `
closers:
  - id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e
    name: A
    categories: [r1]
    slots:
      - {weekday: monday, category: r1, times: ["9:5"]}
`,
		"duplicate slot": `
closers:
  - id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e
    name: A
    categories: [r1]
    slots:
      - {weekday: monday, category: r1, times: ["10:00", "10:00"]}
`,
		"unserved category": `
closers:
  - id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e
    name: A
    categories: [r1]
    slots:
      - {weekday: friday, category: r2, times: ["10:00"]}
`,
		"duplicate closer": `
closers:
  - {id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e, name: A}
  - {id: 6f1c1d5e-4a53-4f0e-9a8c-0c1f1b2a3d4e, name: B}
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc), "UTC")
			assert.Error(t, err)
		})
	}
}

func TestTemplatesForIsSortedAndCached(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Store: memstore.New()}
	svc := New(repo, time.Minute)

	parsed, err := Parse(strings.NewReader(sampleCatalog), "UTC")
	require.NoError(t, err)
	require.NoError(t, svc.Import(ctx, repo, parsed))

	id := parsed[0].Closer.ID
	templates, err := svc.TemplatesFor(ctx, id, time.Monday, domain.FirstMeeting)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "10:00", templates[0].StartTime.String())
	assert.Equal(t, "14:00", templates[1].StartTime.String())

	_, err = svc.TemplatesFor(ctx, id, time.Monday, domain.FirstMeeting)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.templateCalls.Load())

	require.NoError(t, svc.Import(ctx, repo, parsed))
	_, err = svc.TemplatesFor(ctx, id, time.Monday, domain.FirstMeeting)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.templateCalls.Load(), "import drops the cache")
}

func TestListEligibleClosersSkipsInactive(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := New(store, 0)

	parsed, err := Parse(strings.NewReader(sampleCatalog), "UTC")
	require.NoError(t, err)
	require.NoError(t, svc.Import(ctx, store, parsed))

	r1, err := svc.ListEligibleClosers(ctx, domain.FirstMeeting)
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.Equal(t, "Sanne de Vries", r1[0].DisplayName)

	r2, err := svc.ListEligibleClosers(ctx, domain.SecondMeeting)
	require.NoError(t, err)
	assert.Len(t, r2, 1)
}
