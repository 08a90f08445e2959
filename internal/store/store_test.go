package store

import (
	"context"
	"testing"
	"time"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/pzaremba/sprintdesk/internal/session"
	"github.com/pzaremba/sprintdesk/internal/state"
	"github.com/pzaremba/sprintdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type harness struct {
	backend *testutil.FakeBackend
	state   *state.Store
	session *session.Store
	store   *Store
}

func setup(t *testing.T) *harness {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	st := testutil.NewStateStore(t)

	cfg := api.DefaultConfig()
	cfg.BaseURL = backend.URL()
	client := api.NewClient(cfg, api.NoopObserver{})

	sess := session.New(client, st, 0)
	return &harness{
		backend: backend,
		state:   st,
		session: sess,
		store:   New(client, sess, st),
	}
}

// seedProject registers a project with one epic, one sprint and two items.
func seedProject(h *harness, name string) *domain.Project {
	p := testutil.NewTestProject(name)
	e := testutil.NewTestEpic(p.ID, name+" epic")
	sp := testutil.NewTestSprint(p.ID, name+" sprint")
	h.backend.Projects = append(h.backend.Projects, p)
	h.backend.Epics[p.ID] = []*domain.Epic{e}
	h.backend.Sprints[p.ID] = []*domain.Sprint{sp}
	h.backend.Items[p.ID] = []*domain.Item{
		testutil.NewTestItem(p.ID, name+" item 1", testutil.WithEpic(e.ID)),
		testutil.NewTestItem(p.ID, name+" item 2"),
	}
	return p
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	err := h.session.Login(context.Background(), domain.Credentials{
		Email:    h.backend.Email,
		Password: h.backend.Password,
	})
	require.NoError(t, err)
}

func (h *harness) waitLoaded(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, pp := h.store.Projects()
		_, ep := h.store.Epics()
		_, sp := h.store.Sprints()
		_, ip := h.store.Items()
		return pp == PhaseLoaded && ep == PhaseLoaded && sp == PhaseLoaded && ip == PhaseLoaded
	}, waitFor, tick, "collections should settle to LOADED")
}

func (h *harness) generation() uint64 {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.generation
}

func TestAuthentication_LoadsProjectsAndCascades(t *testing.T) {
	h := setup(t)
	p := seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	projects, phase := h.store.Projects()
	assert.Equal(t, PhaseLoaded, phase)
	require.Len(t, projects, 1)

	current := h.store.Current()
	require.NotNil(t, current)
	assert.Equal(t, p.ID, current.ID)

	epics, _ := h.store.Epics()
	assert.Len(t, epics, 1)
	items, _ := h.store.Items()
	assert.Len(t, items, 2)
}

func TestSelectAuto_FallsBackToFirstProject(t *testing.T) {
	h := setup(t)
	first := seedProject(h, "First")
	seedProject(h, "Second")

	// Remembered selection points at a project that no longer exists.
	require.NoError(t, h.state.SetProjectID(context.Background(), "99"))

	h.login(t)
	h.waitLoaded(t)

	current := h.store.Current()
	require.NotNil(t, current)
	assert.Equal(t, first.ID, current.ID, "deterministic fallback to first in list order")
}

func TestSelectAuto_RestoresRememberedProject(t *testing.T) {
	h := setup(t)
	seedProject(h, "First")
	second := seedProject(h, "Second")
	require.NoError(t, h.state.SetProjectID(context.Background(), second.ID))

	h.login(t)
	h.waitLoaded(t)

	current := h.store.Current()
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

func TestSelectAuto_EmptyProjectListLeavesSelectionNull(t *testing.T) {
	h := setup(t)
	h.login(t)

	require.Eventually(t, func() bool {
		_, phase := h.store.Projects()
		return phase == PhaseLoaded
	}, waitFor, tick)

	assert.Nil(t, h.store.Current())
	_, phase := h.store.Items()
	assert.Equal(t, PhaseEmpty, phase)
}

func TestSelect_ResetsCollectionsBeforeReload(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	beta := seedProject(h, "Beta")
	h.login(t)
	h.waitLoaded(t)

	// Slow reads keep the reload in flight long enough to observe the
	// synchronous reset.
	h.backend.SetReadDelay(80 * time.Millisecond)

	require.NoError(t, h.store.Select(context.Background(), beta.ID))

	items, phase := h.store.Items()
	assert.Equal(t, PhaseLoading, phase, "reset to skeleton before any new data commits")
	assert.Nil(t, items, "no stale data from the previous project")

	h.backend.SetReadDelay(0)
	h.waitLoaded(t)

	items, _ = h.store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, beta.ID, items[0].ProjectID)
}

func TestSelect_PersistsSelection(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	beta := seedProject(h, "Beta")
	h.login(t)
	h.waitLoaded(t)

	require.NoError(t, h.store.Select(context.Background(), beta.ID))

	id, ok, err := h.state.ProjectID(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, beta.ID, id)
}

func TestSelect_UnknownProject(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	err := h.store.Select(context.Background(), "nope")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestStaleReload_IsDiscarded(t *testing.T) {
	h := setup(t)
	alpha := seedProject(h, "Alpha")
	beta := seedProject(h, "Beta")
	h.login(t)
	h.waitLoaded(t)

	staleGen := h.generation()
	require.NoError(t, h.store.Select(context.Background(), beta.ID))
	h.waitLoaded(t)

	// A response for Alpha tagged with the pre-switch generation arrives
	// late; it must not clobber Beta's data.
	h.store.reloadItems(context.Background(), staleGen, alpha.ID)

	items, phase := h.store.Items()
	assert.Equal(t, PhaseLoaded, phase)
	require.Len(t, items, 2)
	assert.Equal(t, beta.ID, items[0].ProjectID, "last selection wins")
}

func TestLogout_ClearsStoreSynchronously(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	require.NoError(t, h.session.Logout(context.Background()))

	projects, phase := h.store.Projects()
	assert.Nil(t, projects)
	assert.Equal(t, PhaseEmpty, phase)
	assert.Nil(t, h.store.Current())

	items, itemPhase := h.store.Items()
	assert.Nil(t, items)
	assert.Equal(t, PhaseEmpty, itemPhase)
}

func TestFailedReload_KeepsStaleData(t *testing.T) {
	h := setup(t)
	p := seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	h.backend.FailReads(true)
	err := h.store.LoadProjects(context.Background())
	var be *api.BackendError
	require.ErrorAs(t, err, &be)

	// Previous data survives the failed read instead of blanking.
	projects, phase := h.store.Projects()
	assert.Equal(t, PhaseLoaded, phase)
	require.Len(t, projects, 1)
	assert.Equal(t, p.ID, projects[0].ID)
}

func TestCreateEpic_ReloadsCollection(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	e := &domain.Epic{ID: "epic-new", Name: "Checkout"}
	require.NoError(t, h.store.CreateEpic(context.Background(), e))

	epics, phase := h.store.Epics()
	assert.Equal(t, PhaseLoaded, phase)
	require.Len(t, epics, 2, "collection reflects server state after mutation")
	assert.Equal(t, h.store.Current().ID, e.ProjectID, "scoped to the active project")
}

func TestCreateItem_ReloadsCollection(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	it := &domain.Item{ID: "item-new", Title: "Fix login flake", Type: domain.TypeBug,
		Status: domain.StatusToDo, Priority: domain.PriorityCritical}
	require.NoError(t, h.store.CreateItem(context.Background(), it))

	items, _ := h.store.Items()
	assert.Len(t, items, 3)
}

func TestPatchField_UpdatesAndReloads(t *testing.T) {
	h := setup(t)
	p := seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	target := h.backend.Items[p.ID][0]
	require.NoError(t, h.store.PatchField(context.Background(), api.KindItem, target.ID, "status", "DONE"))

	items, _ := h.store.Items()
	var found *domain.Item
	for _, it := range items {
		if it.ID == target.ID {
			found = it
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, domain.StatusDone, found.Status)
}

func TestPatchField_FailureLeavesStateUntouched(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	before, _ := h.store.Items()

	err := h.store.PatchField(context.Background(), api.KindItem, "missing-item", "status", "DONE")
	assert.ErrorIs(t, err, api.ErrNotFound)

	after, phase := h.store.Items()
	assert.Equal(t, PhaseLoaded, phase)
	assert.Equal(t, len(before), len(after))
}

func TestDeleteItem_ReloadsCollection(t *testing.T) {
	h := setup(t)
	p := seedProject(h, "Alpha")
	h.login(t)
	h.waitLoaded(t)

	victim := h.backend.Items[p.ID][0]
	require.NoError(t, h.store.DeleteItem(context.Background(), victim.ID))

	items, _ := h.store.Items()
	assert.Len(t, items, 1)
}

func TestOnChange_FiresOnCommits(t *testing.T) {
	h := setup(t)
	seedProject(h, "Alpha")

	changes := make(chan struct{}, 64)
	h.store.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	h.login(t)
	h.waitLoaded(t)

	select {
	case <-changes:
	case <-time.After(waitFor):
		t.Fatal("expected at least one change notification")
	}
}
