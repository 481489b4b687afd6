package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bastionmc/bastion/internal/bridge"
	"github.com/bastionmc/bastion/internal/busykey"
)

// fakeCommander scripts command-channel responses for orchestrator tests.
type fakeCommander struct {
	mu             sync.Mutex
	searchRequests []bridge.SearchRequest
	searchHits     []bridge.ProjectHit
	searchErr      error
	searchBlock    chan struct{} // when set, SearchProjects waits on it

	installErr      error
	installRequests []bridge.InstallRequest
	installBlock    chan struct{}

	uninstallErr error
	installedIDs []string
	installedReq [][3]string
	worlds       []bridge.World
}

func (f *fakeCommander) LoadConfig(context.Context) (*bridge.AppConfig, error) {
	return &bridge.AppConfig{}, nil
}

func (f *fakeCommander) SaveConfig(context.Context, *bridge.AppConfig) error { return nil }

func (f *fakeCommander) InstanceMetrics(context.Context, string) (*bridge.Metrics, error) {
	return nil, nil
}

func (f *fakeCommander) SearchProjects(_ context.Context, req bridge.SearchRequest) ([]bridge.ProjectHit, error) {
	f.mu.Lock()
	f.searchRequests = append(f.searchRequests, req)
	block := f.searchBlock
	hits := append([]bridge.ProjectHit(nil), f.searchHits...)
	err := f.searchErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return hits, err
}

func (f *fakeCommander) InstallProject(_ context.Context, req bridge.InstallRequest) (*bridge.InstallResult, error) {
	f.mu.Lock()
	f.installRequests = append(f.installRequests, req)
	block := f.installBlock
	err := f.installErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &bridge.InstallResult{Filename: req.ProjectID + ".jar", Version: "1.0", ProjectID: req.ProjectID}, nil
}

func (f *fakeCommander) UninstallProject(_ context.Context, req bridge.UninstallRequest) error {
	return f.uninstallErr
}

func (f *fakeCommander) ListInstalled(_ context.Context, instanceID, projectType, worldID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installedReq = append(f.installedReq, [3]string{instanceID, projectType, worldID})
	return append([]string(nil), f.installedIDs...), nil
}

func (f *fakeCommander) ListWorlds(context.Context, string) ([]bridge.World, error) {
	return append([]bridge.World(nil), f.worlds...), nil
}

func (f *fakeCommander) ExchangeLoginCode(context.Context, string) (*bridge.Account, error) {
	return &bridge.Account{}, nil
}

func (f *fakeCommander) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searchRequests)
}

func (f *fakeCommander) lastSearch() bridge.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchRequests[len(f.searchRequests)-1]
}

type statusRecorder struct {
	mu    sync.Mutex
	lines []string
	oks   []bool
}

func (s *statusRecorder) fn() StatusFunc {
	return func(ok bool, text string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.oks = append(s.oks, ok)
		s.lines = append(s.lines, text)
	}
}

func (s *statusRecorder) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func newTestOrchestrator(cmd bridge.Commander, notify StatusFunc) (*Orchestrator, *busykey.Tracker) {
	busy := &busykey.Tracker{}
	o := New(cmd, busy, notify, zerolog.Nop())
	o.SetInstance("inst-1", "1.21.1", "fabric")
	return o, busy
}

func TestSearch_ResultsReplace(t *testing.T) {
	cmd := &fakeCommander{searchHits: []bridge.ProjectHit{
		{ProjectID: "a"}, {ProjectID: "b"},
	}}
	o, _ := newTestOrchestrator(cmd, nil)

	o.Search(context.Background(), Mods, "first")

	cmd.mu.Lock()
	cmd.searchHits = []bridge.ProjectHit{{ProjectID: "c"}}
	cmd.mu.Unlock()
	o.Search(context.Background(), Mods, "second")

	st := o.State(Mods)
	if len(st.Results) != 1 || st.Results[0].ProjectID != "c" {
		t.Fatalf("results = %#v, want exactly the second call's set", st.Results)
	}
	if st.Query != "second" || st.Loading || st.Err != "" {
		t.Fatalf("state = %+v", st)
	}
}

func TestSearch_LimitDependsOnQuery(t *testing.T) {
	cmd := &fakeCommander{}
	o, _ := newTestOrchestrator(cmd, nil)

	o.Search(context.Background(), Mods, "")
	if got := cmd.lastSearch().Limit; got != popularLimit {
		t.Fatalf("empty query limit = %d, want %d", got, popularLimit)
	}

	o.Search(context.Background(), Mods, "sodium")
	if got := cmd.lastSearch().Limit; got != queryLimit {
		t.Fatalf("query limit = %d, want %d", got, queryLimit)
	}
}

func TestSearch_FailureKeepsPriorResults(t *testing.T) {
	cmd := &fakeCommander{searchHits: []bridge.ProjectHit{{ProjectID: "a"}}}
	o, _ := newTestOrchestrator(cmd, nil)

	o.Search(context.Background(), Mods, "ok")

	cmd.mu.Lock()
	cmd.searchErr = errors.New("api /api/catalog/search failed with status code 500")
	cmd.mu.Unlock()
	o.Search(context.Background(), Mods, "bad")

	st := o.State(Mods)
	if len(st.Results) != 1 || st.Results[0].ProjectID != "a" {
		t.Fatalf("results = %#v, want prior successful set kept", st.Results)
	}
	if st.Err == "" || st.Loading {
		t.Fatalf("state = %+v, want error recorded and loading cleared", st)
	}
}

func TestSearch_TimeoutRewordedForUsers(t *testing.T) {
	cmd := &fakeCommander{searchErr: errors.New("api /api/catalog/search failed with status code 504")}
	o, _ := newTestOrchestrator(cmd, nil)

	o.Search(context.Background(), Shaders, "x")

	st := o.State(Shaders)
	if st.Err != searchTimeoutMessage {
		t.Fatalf("err = %q, want the fixed timeout message", st.Err)
	}

	// Any other failure text passes through verbatim.
	cmd.mu.Lock()
	cmd.searchErr = errors.New("connection refused")
	cmd.mu.Unlock()
	o.Search(context.Background(), Shaders, "x")
	if st := o.State(Shaders); st.Err != "connection refused" {
		t.Fatalf("err = %q, want verbatim passthrough", st.Err)
	}
}

func TestSearch_StaleResponseDiscarded(t *testing.T) {
	block := make(chan struct{})
	cmd := &fakeCommander{
		searchHits:  []bridge.ProjectHit{{ProjectID: "stale"}},
		searchBlock: block,
	}
	o, _ := newTestOrchestrator(cmd, nil)

	done := make(chan struct{})
	go func() {
		o.Search(context.Background(), Mods, "first")
		close(done)
	}()

	for cmd.searchCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// The second search supersedes the first while it is still in flight.
	cmd.mu.Lock()
	cmd.searchBlock = nil
	cmd.searchHits = []bridge.ProjectHit{{ProjectID: "fresh"}}
	cmd.mu.Unlock()
	o.Search(context.Background(), Mods, "second")

	close(block)
	<-done

	st := o.State(Mods)
	if len(st.Results) != 1 || st.Results[0].ProjectID != "fresh" {
		t.Fatalf("results = %#v, stale response must be discarded", st.Results)
	}
	if st.Loading {
		t.Fatal("loading flag stuck after superseded search")
	}
}

func TestCategoriesAreIndependent(t *testing.T) {
	cmd := &fakeCommander{searchHits: []bridge.ProjectHit{{ProjectID: "m"}}}
	o, _ := newTestOrchestrator(cmd, nil)

	o.Search(context.Background(), Mods, "sodium")
	o.ToggleCategory(context.Background(), Mods, "magic")

	for _, other := range []ContentType{ResourcePacks, Shaders, Datapacks} {
		st := o.State(other)
		if st.Query != "" || st.Results != nil || len(st.Filters.Categories) != 0 {
			t.Fatalf("%s state changed by mods mutation: %+v", other, st)
		}
	}
}

func TestToggleCategory_TriggersSearchWithFacetGroup(t *testing.T) {
	cmd := &fakeCommander{searchHits: []bridge.ProjectHit{{ProjectID: "s1"}}}
	o, _ := newTestOrchestrator(cmd, nil)

	o.Search(context.Background(), Mods, "")
	before := cmd.searchCount()

	cmd.mu.Lock()
	cmd.searchHits = []bridge.ProjectHit{{ProjectID: "s2"}}
	cmd.mu.Unlock()
	o.ToggleCategory(context.Background(), Mods, "magic")

	if cmd.searchCount() != before+1 {
		t.Fatalf("toggling a filter must immediately issue a new search")
	}
	req := cmd.lastSearch()
	found := false
	for _, group := range req.Facets {
		if reflect.DeepEqual(group, []string{"categories:magic"}) {
			found = true
		}
	}
	if !found {
		t.Fatalf("facets = %v, want a [categories:magic] group", req.Facets)
	}

	st := o.State(Mods)
	if len(st.Results) != 1 || st.Results[0].ProjectID != "s2" {
		t.Fatalf("results = %#v, want replacement by the filtered search", st.Results)
	}

	// Toggling again removes the chip and the facet group.
	o.ToggleCategory(context.Background(), Mods, "magic")
	for _, group := range cmd.lastSearch().Facets {
		if reflect.DeepEqual(group, []string{"categories:magic"}) {
			t.Fatalf("facets = %v, chip should be gone", cmd.lastSearch().Facets)
		}
	}
}

func TestInstall_DuplicateSilentlyRejected(t *testing.T) {
	block := make(chan struct{})
	cmd := &fakeCommander{installBlock: block}
	rec := &statusRecorder{}
	o, busy := newTestOrchestrator(cmd, rec.fn())

	project := bridge.ProjectHit{ProjectID: "abc", Title: "Sodium"}
	done := make(chan struct{})
	go func() {
		o.Install(context.Background(), Mods, project)
		close(done)
	}()

	for {
		if _, held := busy.Tag(busykey.Key{Kind: "mods", ID: "abc"}); held {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// Second install for the same key while the first is in flight.
	o.Install(context.Background(), Mods, project)

	cmd.mu.Lock()
	issued := len(cmd.installRequests)
	cmd.mu.Unlock()
	if issued != 1 {
		t.Fatalf("install requests issued = %d, want 1 (duplicate rejected before request)", issued)
	}

	close(block)
	<-done

	if _, held := busy.Tag(busykey.Key{Kind: "mods", ID: "abc"}); held {
		t.Fatal("busy key still held after install finished")
	}

	// A third install after completion goes through.
	o.Install(context.Background(), Mods, project)
	cmd.mu.Lock()
	issued = len(cmd.installRequests)
	cmd.mu.Unlock()
	if issued != 2 {
		t.Fatalf("install requests = %d, want 2 after key released", issued)
	}
}

func TestInstall_FailureReleasesKeyAndReportsOnce(t *testing.T) {
	cmd := &fakeCommander{installErr: errors.New("disk full")}
	rec := &statusRecorder{}
	o, busy := newTestOrchestrator(cmd, rec.fn())

	o.Install(context.Background(), Mods, bridge.ProjectHit{ProjectID: "abc", Title: "Sodium"})

	if _, held := busy.Tag(busykey.Key{Kind: "mods", ID: "abc"}); held {
		t.Fatal("failure must not leave the busy key stuck")
	}
	lines := rec.all()
	if len(lines) != 1 {
		t.Fatalf("status lines = %v, want exactly one", lines)
	}
	if lines[0] != "Failed to install Sodium: disk full" {
		t.Fatalf("status = %q", lines[0])
	}
}

func TestInstall_SuccessReloadsInstalledSet(t *testing.T) {
	cmd := &fakeCommander{installedIDs: []string{"abc"}}
	rec := &statusRecorder{}
	o, _ := newTestOrchestrator(cmd, rec.fn())

	o.Install(context.Background(), Mods, bridge.ProjectHit{ProjectID: "abc", Title: "Sodium"})

	st := o.State(Mods)
	if !st.Installed["abc"] {
		t.Fatalf("installed set = %v, want abc present", st.Installed)
	}
	cmd.mu.Lock()
	req := cmd.installedReq[len(cmd.installedReq)-1]
	cmd.mu.Unlock()
	if req != [3]string{"inst-1", "mod", ""} {
		t.Fatalf("installed listing request = %v", req)
	}
}

func TestInstall_DatapackIsWorldScoped(t *testing.T) {
	cmd := &fakeCommander{installedIDs: []string{"dp"}}
	o, _ := newTestOrchestrator(cmd, nil)
	o.SetWorld(context.Background(), "world-1")

	o.Install(context.Background(), Datapacks, bridge.ProjectHit{ProjectID: "dp"})

	cmd.mu.Lock()
	install := cmd.installRequests[0]
	listed := cmd.installedReq[len(cmd.installedReq)-1]
	cmd.mu.Unlock()
	if install.WorldID != "world-1" {
		t.Fatalf("install world id = %q, want world-1", install.WorldID)
	}
	if listed != [3]string{"inst-1", "datapack", "world-1"} {
		t.Fatalf("datapack listing = %v, want world-scoped re-read", listed)
	}
}

func TestSetInstance_ResetsAllCategories(t *testing.T) {
	cmd := &fakeCommander{searchHits: []bridge.ProjectHit{{ProjectID: "a"}}}
	o, _ := newTestOrchestrator(cmd, nil)

	for _, ct := range ContentTypes() {
		o.Search(context.Background(), ct, "q")
	}
	o.SetInstance("inst-2", "1.20.4", "forge")

	for _, ct := range ContentTypes() {
		st := o.State(ct)
		if st.Query != "" || st.Results != nil || st.Sort != SortRelevance {
			t.Fatalf("%s not reset: %+v", ct, st)
		}
	}
}

func TestSearch_HideInstalledFiltersResults(t *testing.T) {
	cmd := &fakeCommander{
		searchHits:   []bridge.ProjectHit{{ProjectID: "have"}, {ProjectID: "want"}},
		installedIDs: []string{"have"},
	}
	o, _ := newTestOrchestrator(cmd, nil)
	o.ReloadInstalled(context.Background(), Mods)

	o.ToggleHideInstalled(context.Background(), Mods)

	st := o.State(Mods)
	if len(st.Results) != 1 || st.Results[0].ProjectID != "want" {
		t.Fatalf("results = %#v, want installed projects hidden", st.Results)
	}
}

func TestBuildFacets_Deterministic(t *testing.T) {
	f := Filters{
		Categories:     []string{"utility", "magic"},
		Loaders:        []string{"fabric"},
		ClientSide:     true,
		OpenSourceOnly: true,
	}
	got := BuildFacets(Mods, "1.21.1", f)
	want := [][]string{
		{"project_type:mod"},
		{"versions:1.21.1"},
		{"categories:magic", "categories:utility"},
		{"categories:fabric"},
		{"client_side:optional", "client_side:required"},
		{"open_source:true"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("facets = %v, want %v", got, want)
	}

	// ShowAllVersions drops the version pin.
	f.ShowAllVersions = true
	got = BuildFacets(Mods, "1.21.1", f)
	for _, group := range got {
		for _, facet := range group {
			if facet == "versions:1.21.1" {
				t.Fatalf("facets = %v, version group should be dropped", got)
			}
		}
	}
}

func TestBuildFacets_EmptyFiltersOnlyProjectType(t *testing.T) {
	got := BuildFacets(Datapacks, "", Filters{})
	want := [][]string{{"project_type:datapack"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("facets = %v, want %v", got, want)
	}
}

func TestState_ReturnsCopies(t *testing.T) {
	cmd := &fakeCommander{searchHits: []bridge.ProjectHit{{ProjectID: "a"}}}
	o, _ := newTestOrchestrator(cmd, nil)
	o.Search(context.Background(), Mods, "q")

	st := o.State(Mods)
	st.Results[0].ProjectID = "mutated"
	st.Filters.Categories = append(st.Filters.Categories, "x")

	again := o.State(Mods)
	if again.Results[0].ProjectID != "a" {
		t.Fatal("State must return defensive copies of results")
	}
	if len(again.Filters.Categories) != 0 {
		t.Fatal("State must return defensive copies of filters")
	}
}

func TestUninstall_ErrorSurfacedAndKeyReleased(t *testing.T) {
	cmd := &fakeCommander{uninstallErr: fmt.Errorf("file in use")}
	rec := &statusRecorder{}
	o, busy := newTestOrchestrator(cmd, rec.fn())

	o.Uninstall(context.Background(), Shaders, bridge.ProjectHit{ProjectID: "sh", Title: "Iris"})

	if _, held := busy.Tag(busykey.Key{Kind: "shaders", ID: "sh"}); held {
		t.Fatal("uninstall failure must release the busy key")
	}
	lines := rec.all()
	if len(lines) != 1 || lines[0] != "Failed to remove Iris: file in use" {
		t.Fatalf("status = %v", lines)
	}
}
