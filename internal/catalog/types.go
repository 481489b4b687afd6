// Package catalog orchestrates remote content browsing: per-category search
// state, deterministic facet construction, and busy-key guarded
// install/uninstall flows.
package catalog

import "github.com/bastionmc/bastion/internal/bridge"

// ContentType identifies one browsable content category. Each category owns
// fully independent search state.
type ContentType string

const (
	Mods          ContentType = "mods"
	ResourcePacks ContentType = "resourcepacks"
	Shaders       ContentType = "shaders"
	Datapacks     ContentType = "datapacks"
)

// ContentTypes lists every category in display order.
func ContentTypes() []ContentType {
	return []ContentType{Mods, ResourcePacks, Shaders, Datapacks}
}

// ProjectType maps the category to the remote catalog's project type.
func (c ContentType) ProjectType() string {
	switch c {
	case Mods:
		return "mod"
	case ResourcePacks:
		return "resourcepack"
	case Shaders:
		return "shader"
	case Datapacks:
		return "datapack"
	}
	return ""
}

// Sort selects the remote search index.
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortDownloads Sort = "downloads"
	SortFollows   Sort = "follows"
	SortNewest    Sort = "newest"
	SortUpdated   Sort = "updated"
)

// Filters is the structured filter set applied to one category's searches.
// Set fields use slices with set semantics (no duplicates, sorted into the
// facet list deterministically).
type Filters struct {
	Categories      []string
	Loaders         []string
	ShowAllVersions bool
	ClientSide      bool
	ServerSide      bool
	OpenSourceOnly  bool
	HideInstalled   bool
}

// SearchState is one category's browsing state. Categories never affect each
// other; mutating one leaves the other three untouched.
type SearchState struct {
	Query     string
	Results   []bridge.ProjectHit
	Loading   bool
	Err       string
	Sort      Sort
	Filters   Filters
	Installed map[string]bool
}

func defaultState() *SearchState {
	return &SearchState{Sort: SortRelevance}
}

// Result limits: an empty query browses the popular set, a real query gets a
// larger page.
const (
	popularLimit = 10
	queryLimit   = 16
)
