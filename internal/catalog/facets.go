package catalog

import "sort"

// BuildFacets assembles the remote search facet list: one group per
// non-empty filter dimension, each group ORed internally, groups ANDed by
// the catalog API. The output is deterministic for a given input so
// identical filter states produce identical requests.
func BuildFacets(ct ContentType, gameVersion string, f Filters) [][]string {
	facets := [][]string{{"project_type:" + ct.ProjectType()}}

	if gameVersion != "" && !f.ShowAllVersions {
		facets = append(facets, []string{"versions:" + gameVersion})
	}
	if len(f.Categories) > 0 {
		group := make([]string, 0, len(f.Categories))
		for _, c := range f.Categories {
			group = append(group, "categories:"+c)
		}
		sort.Strings(group)
		facets = append(facets, group)
	}
	// Loaders share the categories facet namespace on the remote API.
	if len(f.Loaders) > 0 {
		group := make([]string, 0, len(f.Loaders))
		for _, l := range f.Loaders {
			group = append(group, "categories:"+l)
		}
		sort.Strings(group)
		facets = append(facets, group)
	}
	if f.ClientSide {
		facets = append(facets, []string{"client_side:optional", "client_side:required"})
	}
	if f.ServerSide {
		facets = append(facets, []string{"server_side:optional", "server_side:required"})
	}
	if f.OpenSourceOnly {
		facets = append(facets, []string{"open_source:true"})
	}
	return facets
}

// toggle flips value's membership in the set, keeping set semantics.
func toggle(set []string, value string) []string {
	for i, v := range set {
		if v == value {
			return append(set[:i:i], set[i+1:]...)
		}
	}
	return append(set, value)
}
