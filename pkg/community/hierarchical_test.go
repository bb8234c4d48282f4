package community

import "testing"

func TestHierarchicalDriver_NonSplittableClusterStaysFinal(t *testing.T) {
	// A single, strongly connected triangle: Leiden run fresh on it will
	// always return one cluster covering all three nodes, so even with a
	// MaxClusterSize of 1 it must be recorded final rather than
	// re-enqueued forever.
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 10.0},
		{Source: "b", Target: "c", Weight: 10.0},
		{Source: "a", Target: "c", Weight: 10.0},
	}, true)
	graph := labeled.Compact()

	driver := HierarchicalDriver{
		Params:         Params{UseModularity: true, RNG: NewSeededSource(11)},
		MaxClusterSize: 1,
		MaxLevels:      10,
	}
	result, err := driver.Run(graph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.FinalClusters) != 1 {
		t.Fatalf("expected exactly one final (non-splittable) cluster, got %d: %+v", len(result.FinalClusters), result.FinalClusters)
	}
	if len(result.FinalClusters[0].Nodes) != 3 {
		t.Errorf("expected the final cluster to cover all 3 nodes, got %v", result.FinalClusters[0].Nodes)
	}
	if !result.FinalClusters[0].IsFinal {
		t.Errorf("expected IsFinal to be set on the non-splittable cluster")
	}
}

func TestHierarchicalDriver_LineageTracksParentAcrossLevels(t *testing.T) {
	// Two dense triangles joined by a single weak edge: MaxClusterSize=2
	// forces the top level (one big cluster straddling both triangles,
	// or two clusters, depending on the weak edge's effect) to recurse at
	// least one level deeper, so every emitted entry beyond level 0 must
	// carry a ParentCluster id that is itself present among the earlier
	// entries' Cluster ids.
	edges := []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 50.0},
		{Source: "b", Target: "c", Weight: 50.0},
		{Source: "a", Target: "c", Weight: 50.0},
		{Source: "d", Target: "e", Weight: 50.0},
		{Source: "e", Target: "f", Weight: 50.0},
		{Source: "d", Target: "f", Weight: 50.0},
		{Source: "c", Target: "d", Weight: 1.0},
	}
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, edges, true)
	graph := labeled.Compact()
	_ = labeled

	driver := HierarchicalDriver{
		Params:         Params{UseModularity: true, RNG: NewSeededSource(3)},
		MaxClusterSize: 2,
		MaxLevels:      10,
	}
	result, err := driver.Run(graph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	seenClusterIDs := map[int]bool{}
	for _, entry := range result.Entries {
		seenClusterIDs[entry.Cluster] = true
	}
	for _, entry := range result.Entries {
		if entry.Level == 0 {
			if entry.ParentCluster != -1 {
				t.Errorf("expected level-0 entry to have no parent, got %d", entry.ParentCluster)
			}
			continue
		}
		if !seenClusterIDs[entry.ParentCluster] {
			t.Errorf("entry %+v references unknown parent cluster %d", entry, entry.ParentCluster)
		}
	}

	// Every node in the original graph must appear in exactly one final
	// (leaf) cluster.
	seenNodes := map[CompactNodeID]bool{}
	for _, entry := range result.FinalClusters {
		for _, node := range entry.Nodes {
			if seenNodes[node] {
				t.Errorf("node %d appears in more than one final cluster", node)
			}
			seenNodes[node] = true
		}
	}
	if len(seenNodes) != graph.NumNodes() {
		t.Errorf("expected every node covered by exactly one final cluster, got %d of %d", len(seenNodes), graph.NumNodes())
	}
}

func TestHierarchicalDriver_EmptyNetworkAndParameterRange(t *testing.T) {
	empty := NewCompactGraph(nil, nil, 0)
	driver := HierarchicalDriver{Params: Params{RNG: NewSeededSource(1)}, MaxClusterSize: 10}
	if _, err := driver.Run(empty); err != ErrEmptyNetwork {
		t.Errorf("expected ErrEmptyNetwork, got %v", err)
	}

	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{{Source: "a", Target: "b", Weight: 1.0}}, true)
	graph := labeled.Compact()
	zeroMax := HierarchicalDriver{Params: Params{RNG: NewSeededSource(1)}, MaxClusterSize: 0}
	if _, err := zeroMax.Run(graph); err != ErrParameterRange {
		t.Errorf("expected ErrParameterRange for non-positive MaxClusterSize, got %v", err)
	}
}
