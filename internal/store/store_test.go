package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/kvstore/memory"
	"github.com/vbonduro/obras/internal/recordstore"
)

// faultyKV fails writes to one key while failKey is set.
type faultyKV struct {
	*memory.MemoryStore
	failKey string
}

func (f *faultyKV) Set(ctx context.Context, key string, value []byte) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func newTestStores(t *testing.T) (*SiteStore, *InspectionStore, *faultyKV) {
	t.Helper()
	kv := &faultyKV{MemoryStore: memory.NewMemoryStore()}
	rs := recordstore.New(kv, nil, slog.Default())
	return NewSiteStore(rs, slog.Default()), NewInspectionStore(rs), kv
}

func bridgeDraft() domain.SiteDraft {
	return domain.SiteDraft{
		Name:      "Bridge A",
		Owner:     "J. Doe",
		Address:   domain.Location{FormattedAddress: "Main St 1", Latitude: -8.05, Longitude: -34.88},
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func inspectionDraft(siteID string) domain.InspectionDraft {
	return domain.InspectionDraft{
		SiteID:   siteID,
		Date:     time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC),
		Status:   domain.StatusOnTrack,
		Notes:    "Foundations poured",
		Location: domain.Location{FormattedAddress: "Main St 1"},
		Photo:    &domain.Photo{URI: "/photos/a.jpg", Name: "a.jpg", MimeType: "image/jpeg"},
	}
}

func TestSiteStoreCreate(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	site, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, site.ID)
	assert.False(t, site.CreatedAt.IsZero())
	assert.Equal(t, "Bridge A", site.Name)

	all, err := sites.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, site.ID, all[0].ID)
}

func TestSiteStoreCreateThenGetByID(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	draft := bridgeDraft()
	draft.Description = "Two-lane bridge"
	draft.Photo = &domain.Photo{URI: "/photos/b.jpg", Name: "b.jpg", MimeType: "image/jpeg"}
	created, err := sites.Create(ctx, draft)
	require.NoError(t, err)

	got, err := sites.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, draft, got.Draft())
}

func TestSiteStoreCreateAssignsUniqueIDs(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		site, err := sites.Create(ctx, bridgeDraft())
		require.NoError(t, err)
		assert.False(t, seen[site.ID])
		seen[site.ID] = true
	}
}

func TestSiteStoreCreateRejectsBadDates(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	_, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	before, err := sites.List(ctx)
	require.NoError(t, err)

	for _, end := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	} {
		draft := bridgeDraft()
		draft.EndDate = end

		_, err := sites.Create(ctx, draft)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "gtfield", verr.Fields["endDate"])
	}

	after, err := sites.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSiteStoreCreateRejectsMissingFields(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	draft := bridgeDraft()
	draft.Owner = ""
	draft.Address.FormattedAddress = ""

	_, err := sites.Create(ctx, draft)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "owner")
	assert.Contains(t, verr.Fields, "address.formattedAddress")

	all, err := sites.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSiteStoreCreateWriteFailure(t *testing.T) {
	sites, _, kv := newTestStores(t)
	kv.failKey = recordstore.Sites

	_, err := sites.Create(context.Background(), bridgeDraft())
	var werr *domain.StorageWriteError
	assert.ErrorAs(t, err, &werr)
}

func TestSiteStoreGetByIDNotFound(t *testing.T) {
	sites, _, _ := newTestStores(t)

	_, err := sites.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSiteStoreListCorruptData(t *testing.T) {
	sites, _, kv := newTestStores(t)
	ctx := context.Background()
	require.NoError(t, kv.MemoryStore.Set(ctx, recordstore.Sites, []byte(`{"oops"`)))

	_, err := sites.List(ctx)
	var rerr *domain.StorageReadError
	assert.ErrorAs(t, err, &rerr)
}

func TestSiteStoreUpdate(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	created, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)

	patch := created.Draft()
	patch.Name = "Bridge A (north span)"
	patch.EndDate = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	updated, err := sites.Update(ctx, created.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Bridge A (north span)", updated.Name)

	got, err := sites.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestSiteStoreUpdateIsIdempotent(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	created, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	patch := created.Draft()
	patch.Owner = "Maria Silva"

	_, err = sites.Update(ctx, created.ID, patch)
	require.NoError(t, err)
	once, err := sites.List(ctx)
	require.NoError(t, err)

	_, err = sites.Update(ctx, created.ID, patch)
	require.NoError(t, err)
	twice, err := sites.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestSiteStoreUpdateNotFound(t *testing.T) {
	sites, _, _ := newTestStores(t)

	_, err := sites.Update(context.Background(), "missing", bridgeDraft())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSiteStoreUpdateValidates(t *testing.T) {
	sites, _, _ := newTestStores(t)
	ctx := context.Background()

	created, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	patch := created.Draft()
	patch.Name = ""

	_, err = sites.Update(ctx, created.ID, patch)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := sites.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bridge A", got.Name)
}

func TestInspectionStoreCreate(t *testing.T) {
	sites, inspections, _ := newTestStores(t)
	ctx := context.Background()

	site, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)

	insp, err := inspections.Create(ctx, inspectionDraft(site.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, insp.ID)
	assert.Equal(t, site.ID, insp.SiteID)

	got, err := inspections.GetByID(ctx, insp.ID)
	require.NoError(t, err)
	assert.Equal(t, insp, got)
	assert.Equal(t, inspectionDraft(site.ID), got.Draft())
}

func TestInspectionStoreCreateUnknownSite(t *testing.T) {
	_, inspections, _ := newTestStores(t)
	ctx := context.Background()

	_, err := inspections.Create(ctx, inspectionDraft("no-such-site"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := inspections.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInspectionStoreCreateValidation(t *testing.T) {
	_, inspections, _ := newTestStores(t)
	ctx := context.Background()

	draft := inspectionDraft("")
	draft.Photo = nil
	draft.Notes = ""

	_, err := inspections.Create(ctx, draft)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["siteId"])
	assert.Equal(t, "required", verr.Fields["photo"])
	assert.Equal(t, "required", verr.Fields["notes"])

	draft = inspectionDraft("")
	_, err = inspections.Create(ctx, draft)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"siteId": "required"}, verr.Fields)
}

func TestInspectionStoreListBySite(t *testing.T) {
	sites, inspections, _ := newTestStores(t)
	ctx := context.Background()

	a, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	b, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)

	first, err := inspections.Create(ctx, inspectionDraft(a.ID))
	require.NoError(t, err)
	_, err = inspections.Create(ctx, inspectionDraft(b.ID))
	require.NoError(t, err)
	third, err := inspections.Create(ctx, inspectionDraft(a.ID))
	require.NoError(t, err)

	got, err := inspections.ListBySite(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, third.ID, got[1].ID)
}

func TestInspectionStoreUpdateKeepsSite(t *testing.T) {
	sites, inspections, _ := newTestStores(t)
	ctx := context.Background()

	site, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	insp, err := inspections.Create(ctx, inspectionDraft(site.ID))
	require.NoError(t, err)

	patch := insp.Draft()
	patch.SiteID = "another-site"
	patch.Status = domain.StatusStopped
	patch.Notes = "Work halted by rain"

	updated, err := inspections.Update(ctx, insp.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, site.ID, updated.SiteID)
	assert.Equal(t, insp.CreatedAt, updated.CreatedAt)
	assert.Equal(t, domain.StatusStopped, updated.Status)

	again, err := inspections.Update(ctx, insp.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, updated, again)
}

func TestInspectionStoreUpdateRequiresPhoto(t *testing.T) {
	sites, inspections, _ := newTestStores(t)
	ctx := context.Background()

	site, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	insp, err := inspections.Create(ctx, inspectionDraft(site.ID))
	require.NoError(t, err)

	patch := insp.Draft()
	patch.Photo = nil
	_, err = inspections.Update(ctx, insp.ID, patch)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["photo"])
}

func TestInspectionStoreUpdateNotFound(t *testing.T) {
	_, inspections, _ := newTestStores(t)

	_, err := inspections.Update(context.Background(), "missing", inspectionDraft("s1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInspectionStoreDelete(t *testing.T) {
	sites, inspections, _ := newTestStores(t)
	ctx := context.Background()

	site, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	insp, err := inspections.Create(ctx, inspectionDraft(site.ID))
	require.NoError(t, err)

	require.NoError(t, inspections.Delete(ctx, insp.ID))
	_, err = inspections.GetByID(ctx, insp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, inspections.Delete(ctx, insp.ID))
}

// seed writes raw collections the way an earlier version of the app left them.
func seed(t *testing.T, kv *faultyKV, sites, inspections string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, kv.MemoryStore.Set(ctx, recordstore.Sites, []byte(sites)))
	require.NoError(t, kv.MemoryStore.Set(ctx, recordstore.Inspections, []byte(inspections)))
}

func TestCascadeDeleteSite(t *testing.T) {
	sites, inspections, kv := newTestStores(t)
	ctx := context.Background()
	seed(t, kv,
		`[{"id":"s1"},{"id":"s2"}]`,
		`[{"id":"i1","siteId":"s1","status":"on_track"},{"id":"i2","siteId":"s2","status":"on_track"}]`,
	)

	require.NoError(t, sites.Delete(ctx, "s1"))

	remainingSites, err := sites.List(ctx)
	require.NoError(t, err)
	require.Len(t, remainingSites, 1)
	assert.Equal(t, "s2", remainingSites[0].ID)

	remaining, err := inspections.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "i2", remaining[0].ID)
	assert.Equal(t, "s2", remaining[0].SiteID)

	_, err = sites.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	bySite, err := inspections.ListBySite(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, bySite)
}

func TestCascadeDeleteSitePartialFailure(t *testing.T) {
	sites, inspections, kv := newTestStores(t)
	ctx := context.Background()
	seed(t, kv,
		`[{"id":"s1"}]`,
		`[{"id":"i1","siteId":"s1","status":"on_track"}]`,
	)
	kv.failKey = recordstore.Inspections

	err := sites.Delete(ctx, "s1")
	var pf *domain.PartialFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "s1", pf.SiteID)

	_, err = sites.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	orphans, err := inspections.ListBySite(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, orphans, 1)

	// Repeating the delete once storage recovers clears the orphans.
	kv.failKey = ""
	require.NoError(t, sites.Delete(ctx, "s1"))
	orphans, err = inspections.ListBySite(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestCascadeDeleteSiteFirstStepFails(t *testing.T) {
	sites, inspections, kv := newTestStores(t)
	ctx := context.Background()
	seed(t, kv,
		`[{"id":"s1"}]`,
		`[{"id":"i1","siteId":"s1","status":"on_track"}]`,
	)
	kv.failKey = recordstore.Sites

	err := sites.Delete(ctx, "s1")
	require.Error(t, err)
	var pf *domain.PartialFailure
	assert.False(t, errors.As(err, &pf))
	var werr *domain.StorageWriteError
	assert.ErrorAs(t, err, &werr)

	_, err = sites.GetByID(ctx, "s1")
	assert.NoError(t, err)
	remaining, err := inspections.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestCascadeDeleteUnknownSite(t *testing.T) {
	sites, _, kv := newTestStores(t)
	kv.failKey = recordstore.Sites

	// Nothing to remove, so nothing is written and the failing key is never touched.
	assert.NoError(t, sites.Delete(context.Background(), "missing"))
}

// pausingKV holds the first read of pauseKey until release is closed.
type pausingKV struct {
	*memory.MemoryStore
	pauseKey string
	once     sync.Once
	reached  chan struct{}
	release  chan struct{}
}

func (p *pausingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == p.pauseKey {
		p.once.Do(func() {
			close(p.reached)
			<-p.release
		})
	}
	return p.MemoryStore.Get(ctx, key)
}

func TestInspectionCreateRacingSiteDelete(t *testing.T) {
	kv := &pausingKV{
		MemoryStore: memory.NewMemoryStore(),
		reached:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	rs := recordstore.New(kv, nil, slog.Default())
	sites, inspections := NewSiteStore(rs, slog.Default()), NewInspectionStore(rs)
	ctx := context.Background()

	site, err := sites.Create(ctx, bridgeDraft())
	require.NoError(t, err)
	kv.pauseKey = recordstore.Sites

	createErr := make(chan error, 1)
	go func() {
		_, err := inspections.Create(ctx, inspectionDraft(site.ID))
		createErr <- err
	}()
	<-kv.reached

	deleteErr := make(chan error, 1)
	go func() { deleteErr <- sites.Delete(ctx, site.ID) }()

	select {
	case <-deleteErr:
		t.Fatal("site delete completed while an inspection create was checking the site")
	case <-time.After(50 * time.Millisecond):
	}

	close(kv.release)
	require.NoError(t, <-createErr)
	require.NoError(t, <-deleteErr)

	_, err = sites.GetByID(ctx, site.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	bySite, err := inspections.ListBySite(ctx, site.ID)
	require.NoError(t, err)
	assert.Empty(t, bySite)
}
