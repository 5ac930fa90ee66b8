package syncer

import (
	"sort"

	"github.com/BartekS5/cardsync/pkg/models"
)

// ValidateBatch rejects source entities that share a name with another
// entity of the same type, across every source.
func ValidateBatch(sources []*Source) error {
	type key struct {
		t    models.EntityType
		name string
	}
	seen := map[key][]string{}
	for _, src := range sources {
		for _, e := range src.Entities {
			k := key{e.Type, e.Name()}
			seen[k] = append(seen[k], src.Server.Host)
		}
	}

	keys := make([]key, 0, len(seen))
	for k, hosts := range seen {
		if len(hosts) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].t != keys[j].t {
			return keys[i].t < keys[j].t
		}
		return keys[i].name < keys[j].name
	})

	cfgErr := &models.ConfigurationError{}
	for _, k := range keys {
		cfgErr.Add("duplicate %s name %q (%d occurrences in %v)", k.t, k.name, len(seen[k]), seen[k])
	}
	return cfgErr.OrNil()
}

// validateSelection rejects a batch that selects the same row twice.
func validateSelection(selected []*models.SyncStatus) error {
	cfgErr := &models.ConfigurationError{}
	seen := map[string]bool{}
	for _, st := range selected {
		if seen[st.ID] {
			cfgErr.Add("%s selected more than once", st.ID)
		}
		seen[st.ID] = true
	}
	return cfgErr.OrNil()
}
