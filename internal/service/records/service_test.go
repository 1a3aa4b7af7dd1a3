package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/seed"
	"github.com/jwalitptl/dental-admin/internal/storage/memory"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
	"github.com/jwalitptl/dental-admin/pkg/metrics"
)

var clockStart = time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

// fixedClock returns the same instant on every call unless advanced.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSeeded(t *testing.T, opts ...Option) (*Service, *memory.Store, *fixedClock) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, seed.NewSeeder(store, nil, nil).EnsureSeeded(ctx))
	clock := &fixedClock{now: clockStart}
	svc, err := NewService(ctx, store, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return svc, store, clock
}

func storedPatients(t *testing.T, store *memory.Store) []model.Patient {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), model.KeyPatients)
	require.NoError(t, err)
	require.True(t, ok)
	var out []model.Patient
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func storedIncidents(t *testing.T, store *memory.Store) []model.Incident {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), model.KeyIncidents)
	require.NoError(t, err)
	require.True(t, ok)
	var out []model.Incident
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestNewService_Hydrates(t *testing.T) {
	svc, _, _ := newSeeded(t)
	assert.Len(t, svc.Patients(), 3)
	assert.Len(t, svc.Incidents(), 4)
	assert.Equal(t, uint64(0), svc.Version())
}

func TestNewService_EmptyStore(t *testing.T) {
	svc, err := NewService(context.Background(), memory.New())
	require.NoError(t, err)
	assert.NotNil(t, svc.Patients())
	assert.Empty(t, svc.Patients())
	assert.Empty(t, svc.Incidents())
}

func TestNewService_CorruptCollection(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, model.KeyIncidents, "not json"))

	_, err := NewService(ctx, store)
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestCreatePatient(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)

	p, err := svc.CreatePatient(ctx, model.NewPatient{Name: "Ann Lee", DOB: "2000-01-01", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Regexp(t, `^p.+`, p.ID)
	assert.Equal(t, clockStart, p.CreatedAt)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	all := svc.Patients()
	require.Len(t, all, 4)
	assert.Equal(t, p.ID, all[3].ID)

	// the store holds exactly the in-memory collection
	assert.Equal(t, all, storedPatients(t, store))
}

func TestCreatePatient_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	writes := store.Writes()

	_, err := svc.CreatePatient(ctx, model.NewPatient{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = svc.CreatePatient(ctx, model.NewPatient{Name: "X", Email: "not-an-email"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Equal(t, writes, store.Writes())
	assert.Len(t, svc.Patients(), 3)
}

func TestCreate_IDsUniqueOnCollision(t *testing.T) {
	ctx := context.Background()
	tokens := []string{"1", "1", "x", "y"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		tok := tokens[0]
		tokens = tokens[1:]
		return tok
	}
	svc, _, _ := newSeeded(t, WithIDSource(next))

	// "p1" is a fixture id, so the generator must skip it
	a, err := svc.CreatePatient(ctx, model.NewPatient{Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreatePatient(ctx, model.NewPatient{Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, "px", a.ID)
	assert.Equal(t, "py", b.ID)
}

func TestCreate_ManyIDsUnique(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		inc, err := svc.CreateIncident(ctx, model.NewIncident{PatientID: "p1", Title: fmt.Sprintf("visit %d", i), AppointmentDate: clockStart})
		require.NoError(t, err)
		assert.False(t, seen[inc.ID])
		seen[inc.ID] = true
	}
}

func TestUpdatePatient(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newSeeded(t)
	clock.Advance(time.Hour)

	before, _ := svc.Patient("p1")
	contact := "555-0000"
	p, err := svc.UpdatePatient(ctx, "p1", model.PatientPatch{Contact: &contact})
	require.NoError(t, err)

	assert.Equal(t, "555-0000", p.Contact)
	assert.Equal(t, before.Name, p.Name)
	assert.Equal(t, before.CreatedAt, p.CreatedAt)
	assert.True(t, p.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, svc.Patients(), storedPatients(t, store))
}

func TestUpdate_UpdatedAtStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)

	inc, err := svc.CreateIncident(ctx, model.NewIncident{PatientID: "p1", Title: "t", AppointmentDate: clockStart})
	require.NoError(t, err)

	// the clock does not move between the two calls
	title := "t2"
	updated, err := svc.UpdateIncident(ctx, inc.ID, model.IncidentPatch{Title: &title})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(inc.UpdatedAt))
	assert.Equal(t, inc.CreatedAt, updated.CreatedAt)
}

func TestUpdate_MissingID(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	writes := store.Writes()
	var changes int
	svc.Subscribe(func(Change) { changes++ })

	name := "Ghost"
	_, err := svc.UpdatePatient(ctx, "nope", model.PatientPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	_, err = svc.UpdateIncident(ctx, "nope", model.IncidentPatch{Title: &name})
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	assert.Equal(t, writes, store.Writes())
	assert.Zero(t, changes)
	assert.Equal(t, uint64(0), svc.Version())
}

func TestUpdateIncident_Status(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)

	// any transition is allowed, including out of Completed
	status := model.IncidentStatusScheduled
	inc, err := svc.UpdateIncident(ctx, "i1", model.IncidentPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.IncidentStatusScheduled, inc.Status)

	bad := model.IncidentStatus("Done")
	_, err = svc.UpdateIncident(ctx, "i1", model.IncidentPatch{Status: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	negative := -5.0
	_, err = svc.UpdateIncident(ctx, "i1", model.IncidentPatch{Cost: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, _ := svc.Incident("i1")
	assert.Equal(t, model.IncidentStatusScheduled, got.Status)
	assert.Equal(t, 120.0, got.CostOrZero())
}

func TestCreateIncident_Defaults(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)

	inc, err := svc.CreateIncident(ctx, model.NewIncident{PatientID: "p9", Title: "Orphan", AppointmentDate: clockStart})
	require.NoError(t, err)
	assert.Equal(t, model.IncidentStatusScheduled, inc.Status)
	assert.NotNil(t, inc.Files)
	assert.Empty(t, inc.Files)
	assert.Regexp(t, `^i.+`, inc.ID)
	assert.Len(t, storedIncidents(t, store), 5)
}

func TestDeletePatient_Cascades(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)

	var got []Change
	svc.Subscribe(func(c Change) { got = append(got, c) })

	require.NoError(t, svc.DeletePatient(ctx, "p1"))

	_, ok := svc.Patient("p1")
	assert.False(t, ok)
	assert.Empty(t, svc.IncidentsForPatient("p1"))
	assert.Len(t, svc.Incidents(), 2)
	for _, inc := range storedIncidents(t, store) {
		assert.NotEqual(t, "p1", inc.PatientID)
	}
	assert.Len(t, storedPatients(t, store), 2)

	require.Len(t, got, 1)
	assert.Equal(t, OpDelete, got[0].Op)
	assert.ElementsMatch(t, []string{"i1", "i2"}, got[0].Cascade)
}

func TestDelete_MissingIDIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	writes := store.Writes()

	assert.NoError(t, svc.DeletePatient(ctx, "nope"))
	assert.NoError(t, svc.DeleteIncident(ctx, "nope"))
	assert.Equal(t, writes, store.Writes())
	assert.Len(t, svc.Patients(), 3)
	assert.Len(t, svc.Incidents(), 4)
}

func TestDeletePatient_RollsBackWhenIncidentsWriteFails(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	before, _, _ := store.Get(ctx, model.KeyPatients)

	store.FailWrites(model.KeyIncidents, errors.New("quota exceeded"))
	err := svc.DeletePatient(ctx, "p2")
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	after, _, _ := store.Get(ctx, model.KeyPatients)
	assert.Equal(t, before, after)
	_, ok := svc.Patient("p2")
	assert.True(t, ok)
	assert.Len(t, svc.IncidentsForPatient("p2"), 1)
}

func TestDeletePatient_WithoutIncidentsWritesOnlyPatients(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	p, err := svc.CreatePatient(ctx, model.NewPatient{Name: "Solo"})
	require.NoError(t, err)

	store.FailWrites(model.KeyIncidents, errors.New("should not be touched"))
	assert.NoError(t, svc.DeletePatient(ctx, p.ID))
}

func TestStorageFailureLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	store.FailWrites(model.KeyPatients, errors.New("disk full"))
	store.FailWrites(model.KeyIncidents, errors.New("disk full"))

	_, err := svc.CreatePatient(ctx, model.NewPatient{Name: "X"})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	name := "Changed"
	_, err = svc.UpdatePatient(ctx, "p1", model.PatientPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	assert.ErrorIs(t, svc.DeleteIncident(ctx, "i1"), apperrors.ErrStorageUnavailable)
	_, err = svc.AttachFile(ctx, "i1", model.FileAttachment{ID: "f1"})
	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	assert.Len(t, svc.Patients(), 3)
	p, _ := svc.Patient("p1")
	assert.Equal(t, "John Doe", p.Name)
	inc, ok := svc.Incident("i1")
	require.True(t, ok)
	assert.Empty(t, inc.Files)
	assert.Equal(t, uint64(0), svc.Version())
}

func TestAttachFile(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)

	file := model.FileAttachment{ID: "fabc", Name: "xray.png", URL: "data:image/png;base64,AA==", Type: "image/png", Size: 1, UploadedAt: clockStart}
	inc, err := svc.AttachFile(ctx, "i2", file)
	require.NoError(t, err)
	require.Len(t, inc.Files, 1)
	assert.Equal(t, file, inc.Files[0])

	stored := storedIncidents(t, store)
	assert.Equal(t, file, stored[1].Files[0])

	_, err = svc.AttachFile(ctx, "missing", file)
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestQueriesReturnCopies(t *testing.T) {
	svc, _, _ := newSeeded(t)

	incs := svc.Incidents()
	incs[0].Title = "mutated"
	*incs[0].Cost = 1
	patients := svc.Patients()
	patients[0].Name = "mutated"

	inc, _ := svc.Incident("i1")
	assert.Equal(t, "Routine Cleaning", inc.Title)
	assert.Equal(t, 120.0, inc.CostOrZero())
	p, _ := svc.Patient("p1")
	assert.Equal(t, "John Doe", p.Name)
}

func TestIncidentsForPatient_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)
	created, err := svc.CreateIncident(ctx, model.NewIncident{PatientID: "p1", Title: "Follow-up", AppointmentDate: clockStart.Add(-time.Hour)})
	require.NoError(t, err)

	got := svc.IncidentsForPatient("p1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"i1", "i2", created.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Empty(t, svc.IncidentsForPatient("p404"))
}

func TestSubscribe_VersionAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)

	var got []Change
	unsubscribe := svc.Subscribe(func(c Change) { got = append(got, c) })

	p, err := svc.CreatePatient(ctx, model.NewPatient{Name: "A"})
	require.NoError(t, err)
	name := "B"
	_, err = svc.UpdatePatient(ctx, p.ID, model.PatientPatch{Name: &name})
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()
	require.NoError(t, svc.DeleteIncident(ctx, "i4"))

	require.Len(t, got, 2)
	assert.Equal(t, Change{Version: 1, Collection: CollectionPatients, Op: OpCreate, ID: p.ID}, got[0])
	assert.Equal(t, Change{Version: 2, Collection: CollectionPatients, Op: OpUpdate, ID: p.ID}, got[1])
	assert.Equal(t, uint64(3), svc.Version())
}

func TestSubscriberMayQuery(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)
	var count int
	svc.Subscribe(func(Change) { count = len(svc.Patients()) })

	_, err := svc.CreatePatient(ctx, model.NewPatient{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	svc, _, _ := newSeeded(t, WithMetrics(m))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordCount.WithLabelValues(CollectionPatients)))
	require.NoError(t, svc.DeletePatient(ctx, "p3"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordCount.WithLabelValues(CollectionPatients)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordCount.WithLabelValues(CollectionIncidents)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordMutations.WithLabelValues(CollectionPatients, string(OpDelete))))
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreatePatient(ctx, model.NewPatient{Name: fmt.Sprintf("P%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.Patients(), 23)
	assert.Equal(t, svc.Patients(), storedPatients(t, store))
	assert.Equal(t, uint64(20), svc.Version())
}

func TestSubscribe_ConcurrentChangesArriveInVersionOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSeeded(t)

	var mu sync.Mutex
	var versions []uint64
	svc.Subscribe(func(c Change) {
		mu.Lock()
		versions = append(versions, c.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreatePatient(ctx, model.NewPatient{Name: fmt.Sprintf("P%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, versions, 50)
	for i, v := range versions {
		assert.Equal(t, uint64(i+1), v)
	}
}

func TestRestartSeesPersistedState(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newSeeded(t)
	inc, err := svc.CreateIncident(ctx, model.NewIncident{PatientID: "p2", Title: "Whitening", AppointmentDate: clockStart.Add(48 * time.Hour)})
	require.NoError(t, err)

	reopened, err := NewService(ctx, store)
	require.NoError(t, err)
	got, ok := reopened.Incident(inc.ID)
	require.True(t, ok)
	assert.Equal(t, *inc, *got)
}
