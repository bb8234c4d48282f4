package community

import (
	"context"
	"fmt"
	"time"
)

// LeidenDetector implements CommunityDetector using the hierarchical
// Leiden engine: input edges are compacted into a CompactGraph keyed by
// the caller's string node ids, clustered hierarchically via
// HierarchicalDriver, and the resulting lineage translated back into
// Community/CommunityMember records.
type LeidenDetector struct {
	config LeidenConfig
}

// NewLeidenDetector creates a new Leiden community detector.
func NewLeidenDetector(config LeidenConfig) *LeidenDetector {
	return &LeidenDetector{config: config}
}

// Detect implements CommunityDetector.
func (d *LeidenDetector) Detect(ctx context.Context, graph Graph, config LeidenConfig) (*LeidenResult, error) {
	start := time.Now()

	if len(graph.Nodes) == 0 {
		return nil, ErrEmptyNetwork
	}

	labels := make([]string, len(graph.Nodes))
	for i, n := range graph.Nodes {
		labels[i] = n.ID
	}
	labeledEdges := make([]LabeledEdge[string], len(graph.Edges))
	for i, e := range graph.Edges {
		labeledEdges[i] = LabeledEdge[string]{Source: e.Source, Target: e.Target, Weight: e.Weight}
	}

	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(labels, labeledEdges, config.UseModularity)
	compact := labeled.Compact()

	seed := uint64(config.RandomSeed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	maxClusterSize := config.MaxClusterSize
	if maxClusterSize <= 0 {
		maxClusterSize = compact.NumNodes()
	}
	maxLevels := config.NumLevels
	if maxLevels <= 0 {
		maxLevels = 1
	}

	driver := HierarchicalDriver{
		Params:         config.toEngineParams(NewSeededSource(seed)),
		MaxClusterSize: maxClusterSize,
		MaxLevels:      maxLevels,
	}

	hierarchy, err := driver.Run(compact)
	if err != nil {
		return nil, fmt.Errorf("community: hierarchical leiden run: %w", err)
	}

	evaluator := QualityEvaluator{UseModularity: config.UseModularity, Resolution: config.toEngineParams(nil).Resolution}
	finalClustering := clusteringFromEntries(hierarchy.FinalClusters, compact.NumNodes())
	modularity, err := evaluator.Evaluate(compact, finalClustering)
	if err != nil {
		return nil, fmt.Errorf("community: quality evaluation: %w", err)
	}

	communityIDForCluster := make(map[int]string, len(hierarchy.Entries))
	now := time.Now()
	communities := make([]Community, 0, len(hierarchy.Entries))
	var memberships []CommunityMember

	for _, entry := range hierarchy.Entries {
		if config.MinCommunitySize > 0 && len(entry.Nodes) < config.MinCommunitySize {
			continue
		}

		communityID := fmt.Sprintf("community-%d", entry.Cluster)
		communityIDForCluster[entry.Cluster] = communityID

		parentID := ""
		if entry.ParentCluster >= 0 {
			parentID = communityIDForCluster[entry.ParentCluster]
		}

		level := levelForDepth(entry.Level)

		communities = append(communities, Community{
			ID:       communityID,
			Level:    level,
			ParentID: parentID,
			Size:     len(entry.Nodes),
			Temporal: CommunityTemporalMeta{
				FirstSeen:    now,
				LastSeen:     now,
				LastActivity: now,
			},
		})

		for _, nodeID := range entry.Nodes {
			memberships = append(memberships, CommunityMember{
				EntityID:    labeled.LabelFor(nodeID),
				CommunityID: communityID,
				JoinedAt:    now,
			})
		}
	}

	// Overall modularity is a network-wide figure; attach it to every
	// top-level community so a caller reading only the roots still sees it.
	for i := range communities {
		if communities[i].Level == LevelTopic {
			communities[i].Modularity = modularity
		}
	}

	numLevels := 0
	for _, entry := range hierarchy.Entries {
		if entry.Level+1 > numLevels {
			numLevels = entry.Level + 1
		}
	}

	return &LeidenResult{
		Communities:    communities,
		Memberships:    memberships,
		Modularity:     modularity,
		NumLevels:      numLevels,
		ProcessingTime: time.Since(start),
	}, nil
}

// levelForDepth clamps a hierarchy depth onto the three named
// CommunityLevel values; deeper levels all collapse to LevelMicroCluster.
func levelForDepth(depth int) CommunityLevel {
	switch {
	case depth <= 0:
		return LevelTopic
	case depth == 1:
		return LevelCluster
	default:
		return LevelMicroCluster
	}
}

// clusteringFromEntries reconstructs a flat, leaf-level Clustering (one
// cluster per final hierarchy entry) for modularity evaluation against
// the original compact graph.
func clusteringFromEntries(finalClusters []HierarchicalEntry, numNodes int) *Clustering {
	mapping := make([]int, numNodes)
	nextID := 0
	for _, entry := range finalClusters {
		for _, node := range entry.Nodes {
			mapping[node] = nextID
		}
		nextID++
	}
	return AsDefined(mapping, nextID)
}
