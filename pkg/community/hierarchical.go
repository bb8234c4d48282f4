package community

// HierarchicalEntry records one cluster's place in the hierarchy built
// by HierarchicalDriver: which nodes it contains, what level it was
// produced at, which cluster (at the level above) it was split from, and
// whether it is a leaf of the final hierarchy.
type HierarchicalEntry struct {
	Nodes         []CompactNodeID
	Cluster       int
	Level         int
	ParentCluster int
	IsFinal       bool
}

// HierarchicalResult is the output of HierarchicalDriver.Run: every
// cluster ever produced (final or superseded by a later split) plus the
// final entries alone, which together form the finest-level result.
type HierarchicalResult struct {
	Entries []HierarchicalEntry
	// FinalClusters lists, in discovery order, only the entries with
	// IsFinal set: the leaves of the hierarchy.
	FinalClusters []HierarchicalEntry
}

// HierarchicalDriver runs Leiden once, then recursively re-clusters any
// resulting cluster with at least MaxClusterSize nodes, preserving
// parent/child lineage across levels.
type HierarchicalDriver struct {
	Params        Params
	MaxClusterSize int
	MaxLevels      int
}

type hierarchicalWorkItem struct {
	nodes         []CompactNodeID
	level         int
	parentCluster int
}

// Run executes the hierarchical clustering and returns the lineage.
func (h HierarchicalDriver) Run(graph *CompactGraph) (*HierarchicalResult, error) {
	if graph.NumNodes() == 0 {
		return nil, ErrEmptyNetwork
	}
	if h.MaxClusterSize <= 0 {
		return nil, ErrParameterRange
	}

	driver, err := NewLeidenDriver(h.Params)
	if err != nil {
		return nil, err
	}

	result := &HierarchicalResult{}

	allNodes := make([]CompactNodeID, graph.NumNodes())
	for i := range allNodes {
		allNodes[i] = i
	}

	queue := []hierarchicalWorkItem{{nodes: allNodes, level: 0, parentCluster: -1}}
	nextClusterID := 0

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		sub, nodeIDMap := graph.InduceSubnetwork(item.nodes)
		clustering, err := driver.Run(sub)
		if err != nil {
			return nil, err
		}

		perCluster := clustering.NodesPerCluster()
		// A cluster is non-splittable when Leiden, run fresh on exactly
		// this subnetwork, still returns a single cluster covering every
		// node: no further partition is possible, so re-enqueueing it
		// would loop forever. Such a cluster is recorded final regardless
		// of whether it still exceeds MaxClusterSize.
		nonSplittable := len(perCluster) == 1

		for _, localMembers := range perCluster {
			if len(localMembers) == 0 {
				continue
			}
			globalMembers := make([]CompactNodeID, len(localMembers))
			for i, localID := range localMembers {
				globalMembers[i] = nodeIDMap[localID]
			}

			clusterID := nextClusterID
			nextClusterID++

			isFinal := nonSplittable || len(globalMembers) < h.MaxClusterSize || (h.MaxLevels > 0 && item.level+1 >= h.MaxLevels)

			entry := HierarchicalEntry{
				Nodes:         globalMembers,
				Cluster:       clusterID,
				Level:         item.level,
				ParentCluster: item.parentCluster,
				IsFinal:       isFinal,
			}
			result.Entries = append(result.Entries, entry)
			if isFinal {
				result.FinalClusters = append(result.FinalClusters, entry)
			} else {
				queue = append(queue, hierarchicalWorkItem{
					nodes:         globalMembers,
					level:         item.level + 1,
					parentCluster: clusterID,
				})
			}
		}
	}

	return result, nil
}
