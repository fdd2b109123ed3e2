package store

// locationKey is the compound natural key for an origin location.
type locationKey struct {
	city      string
	countryID int
}

// DimensionCache maps natural keys to surrogate ids for one loader
// invocation, avoiding repeat round-trips while iterating a batch. It is
// constructed fresh per run and owned by the single loading goroutine, so it
// needs no locking; cross-process races are handled by the database's
// uniqueness constraints, not by this cache.
type DimensionCache struct {
	countries map[string]int
	botanists map[string]int
	plants    map[string]int
	images    map[int]int
	locations map[locationKey]int
}

// NewDimensionCache creates an empty cache.
func NewDimensionCache() *DimensionCache {
	return &DimensionCache{
		countries: make(map[string]int),
		botanists: make(map[string]int),
		plants:    make(map[string]int),
		images:    make(map[int]int),
		locations: make(map[locationKey]int),
	}
}
