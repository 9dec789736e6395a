package vectorindex

import "github.com/magray-run/agentcore/internal/config"

// Config fully parameterizes one index instance: the tuning knobs from
// config.VectorIndexConfig plus the dimensionality, which is a property of
// the embedding provider feeding this particular tier rather than of the
// index subsystem as a whole.
type Config struct {
	Dimensions            int
	Metric                string
	M                     int
	EfConstruction        int
	EfSearch              int
	LinearSearchThreshold int
	RebuildThreshold      int
	TombstoneRebuildRatio float64
}

// FromGlobal builds a Config for one tier's index from the shared tuning
// section plus that tier's embedding dimensionality.
func FromGlobal(dimensions int, c config.VectorIndexConfig) Config {
	return Config{
		Dimensions:            dimensions,
		Metric:                c.Metric,
		M:                     c.M,
		EfConstruction:        c.EfConstruction,
		EfSearch:              c.EfSearch,
		LinearSearchThreshold: c.LinearSearchThreshold,
		RebuildThreshold:      c.RebuildThreshold,
		TombstoneRebuildRatio: c.TombstoneRebuildRatio,
	}
}
