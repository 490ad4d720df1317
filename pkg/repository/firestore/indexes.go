package firestore

import "github.com/m-mizutani/fireconf"

// IndexConfig returns the composite indexes required by the queries of this
// package, for every collection prefix in use ("" is the unprefixed set).
func IndexConfig(prefixes ...string) *fireconf.Config {
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	cfg := &fireconf.Config{}
	for _, prefix := range prefixes {
		cfg.Collections = append(cfg.Collections,
			fireconf.Collection{
				Name: CollectionName(prefix, grantsCollection),
				Indexes: []fireconf.Index{
					// GetDetail: organisation_id ASC, started_at ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "organisation_id", Order: fireconf.OrderAscending},
							{Path: "started_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		)
	}
	return cfg
}
