package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bastionmc/bastion/internal/bridge"
	"github.com/bastionmc/bastion/internal/busykey"
)

// StatusFunc receives the single user-facing status line for an operation.
// ok is false for failures.
type StatusFunc func(ok bool, text string)

const (
	timeoutStatusMarker  = "status code 504"
	searchTimeoutMessage = "The catalog took too long to respond. Try again in a moment."
)

// Orchestrator owns the four per-category search states and coordinates
// search, install and uninstall against the command channel. Installs and
// uninstalls are guarded by the busy-key tracker so a key never has two
// operations in flight.
type Orchestrator struct {
	cmd    bridge.Commander
	busy   *busykey.Tracker
	notify StatusFunc
	log    zerolog.Logger

	mu          sync.RWMutex
	states      map[ContentType]*SearchState
	gen         map[ContentType]uint64
	instanceID  string
	gameVersion string
	loader      string
	worldID     string
	worlds      []bridge.World
}

// New returns an orchestrator with all categories at their defaults.
func New(cmd bridge.Commander, busy *busykey.Tracker, notify StatusFunc, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		cmd:    cmd,
		busy:   busy,
		notify: notify,
		log:    log,
		states: make(map[ContentType]*SearchState),
		gen:    make(map[ContentType]uint64),
	}
	for _, ct := range ContentTypes() {
		o.states[ct] = defaultState()
	}
	return o
}

// SetInstance switches the owning instance context. All four categories are
// reset to defaults and any in-flight search results are discarded on
// arrival.
func (o *Orchestrator) SetInstance(instanceID, gameVersion, loader string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.instanceID = instanceID
	o.gameVersion = gameVersion
	o.loader = loader
	o.worldID = ""
	o.worlds = nil
	for _, ct := range ContentTypes() {
		o.states[ct] = defaultState()
		o.gen[ct]++
	}
}

// SetWorld scopes the datapack category to one savegame and reloads its
// installed set.
func (o *Orchestrator) SetWorld(ctx context.Context, worldID string) {
	o.mu.Lock()
	o.worldID = worldID
	o.mu.Unlock()
	if worldID != "" {
		o.reloadInstalled(ctx, Datapacks)
	}
}

// RefreshWorlds re-reads the instance's savegame list.
func (o *Orchestrator) RefreshWorlds(ctx context.Context) {
	o.mu.RLock()
	instanceID := o.instanceID
	o.mu.RUnlock()
	if instanceID == "" {
		return
	}
	worlds, err := o.cmd.ListWorlds(ctx, instanceID)
	if err != nil {
		o.log.Warn().Err(err).Str("instance", instanceID).Msg("world listing failed")
		return
	}
	o.mu.Lock()
	o.worlds = worlds
	o.mu.Unlock()
}

// Worlds returns a copy of the current savegame list.
func (o *Orchestrator) Worlds() []bridge.World {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.worlds) == 0 {
		return nil
	}
	dup := make([]bridge.World, len(o.worlds))
	copy(dup, o.worlds)
	return dup
}

// Search runs a catalog search for one category. Results fully replace the
// previous set on success; on failure the previous results are kept and the
// error is recorded. A search superseded by a newer one for the same
// category is discarded when its response arrives.
func (o *Orchestrator) Search(ctx context.Context, ct ContentType, query string) {
	o.mu.Lock()
	st := o.states[ct]
	st.Query = query
	st.Loading = true
	st.Err = ""
	o.gen[ct]++
	gen := o.gen[ct]

	limit := queryLimit
	if strings.TrimSpace(query) == "" {
		limit = popularLimit
	}
	req := bridge.SearchRequest{
		Query:       query,
		ProjectType: ct.ProjectType(),
		GameVersion: o.gameVersion,
		Limit:       limit,
		Sort:        string(st.Sort),
		Facets:      BuildFacets(ct, o.gameVersion, st.Filters),
	}
	o.mu.Unlock()

	hits, err := o.cmd.SearchProjects(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen[ct] != gen {
		return // superseded by a newer search or an instance switch
	}
	st = o.states[ct]
	st.Loading = false
	if err != nil {
		st.Err = friendlySearchError(err)
		return
	}
	if st.Filters.HideInstalled && len(st.Installed) > 0 {
		kept := hits[:0]
		for _, hit := range hits {
			if !st.Installed[hit.ProjectID] {
				kept = append(kept, hit)
			}
		}
		hits = kept
	}
	st.Results = hits
}

// Install installs a project into the active instance. A busy key silently
// rejects a duplicate while the first operation is outstanding, and the key
// is always released when the request finishes, success or failure.
func (o *Orchestrator) Install(ctx context.Context, ct ContentType, project bridge.ProjectHit) {
	key := busykey.Key{Kind: string(ct), ID: project.ProjectID}
	if err := o.busy.TryBegin(key, busykey.TagInstalling); err != nil {
		return
	}
	defer o.busy.End(key)

	o.mu.RLock()
	req := bridge.InstallRequest{
		InstanceID:  o.instanceID,
		ProjectID:   project.ProjectID,
		ProjectType: ct.ProjectType(),
		GameVersion: o.gameVersion,
		Loader:      o.loader,
	}
	if ct == Datapacks {
		req.WorldID = o.worldID
	}
	o.mu.RUnlock()

	res, err := o.cmd.InstallProject(ctx, req)
	if err != nil {
		o.status(false, fmt.Sprintf("Failed to install %s: %v", displayName(project), err))
		return
	}
	o.status(true, fmt.Sprintf("Installed %s %s", displayName(project), res.Version))
	o.reloadInstalled(ctx, ct)
	if ct == Datapacks {
		o.RefreshWorlds(ctx)
	}
}

// Uninstall removes an installed project, symmetric to Install with its own
// busy tag.
func (o *Orchestrator) Uninstall(ctx context.Context, ct ContentType, project bridge.ProjectHit) {
	key := busykey.Key{Kind: string(ct), ID: project.ProjectID}
	if err := o.busy.TryBegin(key, busykey.TagUninstalling); err != nil {
		return
	}
	defer o.busy.End(key)

	o.mu.RLock()
	req := bridge.UninstallRequest{
		InstanceID:  o.instanceID,
		ProjectID:   project.ProjectID,
		ProjectType: ct.ProjectType(),
	}
	if ct == Datapacks {
		req.WorldID = o.worldID
	}
	o.mu.RUnlock()

	if err := o.cmd.UninstallProject(ctx, req); err != nil {
		o.status(false, fmt.Sprintf("Failed to remove %s: %v", displayName(project), err))
		return
	}
	o.status(true, fmt.Sprintf("Removed %s", displayName(project)))
	o.reloadInstalled(ctx, ct)
}

// ToggleCategory flips a category chip and immediately reruns the search
// with the updated filters.
func (o *Orchestrator) ToggleCategory(ctx context.Context, ct ContentType, name string) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.Categories = toggle(st.Filters.Categories, name)
	})
}

// ToggleLoader flips a loader chip and reruns the search.
func (o *Orchestrator) ToggleLoader(ctx context.Context, ct ContentType, loader string) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.Loaders = toggle(st.Filters.Loaders, loader)
	})
}

// ToggleClientSide flips the client environment flag and reruns the search.
func (o *Orchestrator) ToggleClientSide(ctx context.Context, ct ContentType) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.ClientSide = !st.Filters.ClientSide
	})
}

// ToggleServerSide flips the server environment flag and reruns the search.
func (o *Orchestrator) ToggleServerSide(ctx context.Context, ct ContentType) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.ServerSide = !st.Filters.ServerSide
	})
}

// ToggleOpenSourceOnly flips the open-source filter and reruns the search.
func (o *Orchestrator) ToggleOpenSourceOnly(ctx context.Context, ct ContentType) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.OpenSourceOnly = !st.Filters.OpenSourceOnly
	})
}

// ToggleShowAllVersions flips the version pinning and reruns the search.
func (o *Orchestrator) ToggleShowAllVersions(ctx context.Context, ct ContentType) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.ShowAllVersions = !st.Filters.ShowAllVersions
	})
}

// ToggleHideInstalled flips the installed filter and reruns the search.
func (o *Orchestrator) ToggleHideInstalled(ctx context.Context, ct ContentType) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Filters.HideInstalled = !st.Filters.HideInstalled
	})
}

// SetSort changes the result ordering and reruns the search.
func (o *Orchestrator) SetSort(ctx context.Context, ct ContentType, sort Sort) {
	o.mutateAndSearch(ctx, ct, func(st *SearchState) {
		st.Sort = sort
	})
}

// State returns a copy of one category's search state.
func (o *Orchestrator) State(ct ContentType) SearchState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := o.states[ct]
	dup := *st
	if len(st.Results) > 0 {
		dup.Results = make([]bridge.ProjectHit, len(st.Results))
		copy(dup.Results, st.Results)
	}
	if len(st.Installed) > 0 {
		dup.Installed = make(map[string]bool, len(st.Installed))
		for k, v := range st.Installed {
			dup.Installed[k] = v
		}
	}
	dup.Filters.Categories = append([]string(nil), st.Filters.Categories...)
	dup.Filters.Loaders = append([]string(nil), st.Filters.Loaders...)
	return dup
}

// ReloadInstalled re-reads the locally installed project set for one
// category. Failures keep the previous set.
func (o *Orchestrator) ReloadInstalled(ctx context.Context, ct ContentType) {
	o.reloadInstalled(ctx, ct)
}

func (o *Orchestrator) reloadInstalled(ctx context.Context, ct ContentType) {
	o.mu.RLock()
	instanceID := o.instanceID
	worldID := ""
	if ct == Datapacks {
		worldID = o.worldID
	}
	o.mu.RUnlock()
	if instanceID == "" {
		return
	}

	ids, err := o.cmd.ListInstalled(ctx, instanceID, ct.ProjectType(), worldID)
	if err != nil {
		o.log.Warn().Err(err).Str("category", string(ct)).Msg("installed listing failed")
		return
	}
	installed := make(map[string]bool, len(ids))
	for _, id := range ids {
		installed[id] = true
	}
	o.mu.Lock()
	o.states[ct].Installed = installed
	o.mu.Unlock()
}

func (o *Orchestrator) mutateAndSearch(ctx context.Context, ct ContentType, mutate func(*SearchState)) {
	o.mu.Lock()
	st := o.states[ct]
	mutate(st)
	query := st.Query
	o.mu.Unlock()
	o.Search(ctx, ct, query)
}

func (o *Orchestrator) status(ok bool, text string) {
	if o.notify != nil {
		o.notify(ok, text)
	}
}

func displayName(project bridge.ProjectHit) string {
	if project.Title != "" {
		return project.Title
	}
	return project.ProjectID
}

func friendlySearchError(err error) string {
	if strings.Contains(err.Error(), timeoutStatusMarker) {
		return searchTimeoutMessage
	}
	return err.Error()
}
