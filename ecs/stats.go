package ecs

// StorageStats contains component storage statistics for memory tooling.
type StorageStats struct {
	Component      string `json:"component"`       // Component type name
	TypeID         TypeID `json:"type_id"`         // Registry-local type sequence number
	ComponentCount int    `json:"component_count"` // Number of live instances
	DenseExtent    int    `json:"dense_extent"`    // Dense length including tombstones
	MemoryUsed     int64  `json:"memory_used"`     // Bytes held by live components
	MemoryReserved int64  `json:"memory_reserved"` // Bytes reserved by payload chunks and dense capacity
}

// RegistryStats aggregates pool statistics with entity pool counters.
type RegistryStats struct {
	Alive    int            `json:"alive"`    // Live entities
	Released int            `json:"released"` // Recyclable slots on the free list
	Pools    []StorageStats `json:"pools"`    // Per-component-type statistics
}

// Stats reports registry-wide storage statistics. Pools appear in type
// sequence order. When stats are disabled in the configuration, only the
// entity pool counters are filled and per-pool collection is skipped.
func (r *Registry) Stats() RegistryStats {
	stats := RegistryStats{
		Alive:    r.Alive(),
		Released: r.Released(),
	}
	if !r.cfg.EnableStats {
		return stats
	}

	stats.Pools = make([]StorageStats, 0, len(r.pools))
	for _, pool := range r.pools {
		if pool != nil {
			stats.Pools = append(stats.Pools, pool.Stats())
		}
	}
	return stats
}
