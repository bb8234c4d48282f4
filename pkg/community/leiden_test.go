package community

import "testing"

func TestLeidenDriver_Run_ParameterRangeAndEmptyNetwork(t *testing.T) {
	if _, err := NewLeidenDriver(Params{Randomness: 0.1, RNG: nil}); err != ErrParameterRange {
		t.Errorf("expected ErrParameterRange for nil RNG, got %v", err)
	}
	bad := -1.0
	if _, err := NewLeidenDriver(Params{Randomness: 0.1, Resolution: &bad, RNG: NewSeededSource(1)}); err != ErrParameterRange {
		t.Errorf("expected ErrParameterRange for non-positive resolution, got %v", err)
	}

	driver, err := NewLeidenDriver(Params{RNG: NewSeededSource(1)})
	if err != nil {
		t.Fatalf("NewLeidenDriver: %v", err)
	}
	empty := NewCompactGraph(nil, nil, 0)
	if _, err := driver.Run(empty); err != ErrEmptyNetwork {
		t.Errorf("expected ErrEmptyNetwork, got %v", err)
	}
}

func TestLeidenDriver_Run_InducedClusterSizing(t *testing.T) {
	// Build 20 nodes in six tightly-knit groups of sizes 1,1,2,3,5,8 with
	// no edges between groups, so Leiden should recover exactly those
	// groups regardless of internal move order.
	sizes := []int{1, 1, 2, 3, 5, 8}
	var edges []LabeledEdge[string]
	nodeID := 0
	groupOf := make(map[string]int)
	for g, size := range sizes {
		start := nodeID
		for i := 0; i < size; i++ {
			label := labelFor(nodeID)
			groupOf[label] = g
			nodeID++
		}
		for i := start; i < start+size; i++ {
			for j := i + 1; j < start+size; j++ {
				edges = append(edges, LabeledEdge[string]{Source: labelFor(i), Target: labelFor(j), Weight: 10.0})
			}
		}
	}

	builder := NewLabeledGraphBuilder[string]()
	labels := make([]string, nodeID)
	for i := range labels {
		labels[i] = labelFor(i)
	}
	labeled := builder.Build(labels, edges, true)
	graph := labeled.Compact()

	driver, err := NewLeidenDriver(Params{UseModularity: true, RNG: NewSeededSource(99)})
	if err != nil {
		t.Fatalf("NewLeidenDriver: %v", err)
	}
	clustering, err := driver.Run(graph)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Every pair of nodes in the same planted group must end up in the
	// same cluster, and nodes from different groups must not.
	for a := 0; a < nodeID; a++ {
		for b := a + 1; b < nodeID; b++ {
			aID, _ := labeled.CompactIDFor(labelFor(a))
			bID, _ := labeled.CompactIDFor(labelFor(b))
			sameGroup := groupOf[labelFor(a)] == groupOf[labelFor(b)]
			sameCluster := clustering.MustClusterAt(aID) == clustering.MustClusterAt(bID)
			if sameGroup != sameCluster {
				t.Fatalf("node %d and %d: sameGroup=%v sameCluster=%v", a, b, sameGroup, sameCluster)
			}
		}
	}
}

func labelFor(i int) string {
	return string(rune('A' + i%26))
}

// TestLeidenDriver_RunWithInitial_SanityStepSplitsDisconnectedMembers
// reproduces the disconnected-cluster sanity-step scenario: a-b, a-d,
// a-e, b-c, b-f, b-g, c-g, d-h are all edges, but a and h (placed
// together in an initial cluster) share no edge, so the sanity step must
// split one of them into a fresh singleton before any local move runs.
// The full run that follows is free to regroup them through d: the
// partition {a,d,e,h},{b,c,f,g} has higher modularity (about 0.367) than
// any variant that keeps a and h apart, and Leiden finds it.
func TestLeidenDriver_RunWithInitial_SanityStepSplitsDisconnectedMembers(t *testing.T) {
	edges := []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 1.0},
		{Source: "a", Target: "d", Weight: 1.0},
		{Source: "a", Target: "e", Weight: 1.0},
		{Source: "b", Target: "c", Weight: 1.0},
		{Source: "b", Target: "f", Weight: 1.0},
		{Source: "b", Target: "g", Weight: 1.0},
		{Source: "c", Target: "g", Weight: 1.0},
		{Source: "d", Target: "h", Weight: 1.0},
	}
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, edges, true)
	graph := labeled.Compact()

	aID, _ := labeled.CompactIDFor("a")
	hID, _ := labeled.CompactIDFor("h")

	initial := AsSelfClusters(graph.NumNodes())
	initial.UpdateClusterAt(hID, initial.MustClusterAt(aID))

	sanitizeDisconnectedClusters(graph, initial)
	if initial.MustClusterAt(aID) == initial.MustClusterAt(hID) {
		t.Errorf("expected sanity step to split a and h into different clusters, both in %d", initial.MustClusterAt(aID))
	}

	driver, err := NewLeidenDriver(Params{UseModularity: true, RNG: NewSeededSource(5)})
	if err != nil {
		t.Fatalf("NewLeidenDriver: %v", err)
	}
	result, err := driver.RunWithInitial(graph, initial)
	if err != nil {
		t.Fatalf("RunWithInitial: %v", err)
	}
	if result.MustClusterAt(aID) != result.MustClusterAt(hID) {
		t.Errorf("expected a full run to regroup a and h via d, got a in %d and h in %d", result.MustClusterAt(aID), result.MustClusterAt(hID))
	}
}

func TestInitialClusteringForInduced_GroupsConsecutiveBlocksByOriginalCluster(t *testing.T) {
	counts := []int{1, 1, 2, 3, 5, 8}
	got := initialClusteringForInduced(counts, 20)

	want := []int{0, 1, 2, 2, 3, 3, 3, 4, 4, 4, 4, 4, 5, 5, 5, 5, 5, 5, 5, 5}
	if got.NumNodes() != len(want) {
		t.Fatalf("NumNodes() = %d, want %d", got.NumNodes(), len(want))
	}
	for node, wantCluster := range want {
		if got.MustClusterAt(node) != wantCluster {
			t.Errorf("node %d cluster = %d, want %d", node, got.MustClusterAt(node), wantCluster)
		}
	}
	if got.NextClusterID() != 6 {
		t.Errorf("NextClusterID() = %d, want 6", got.NextClusterID())
	}
}

func TestLeidenDriver_RunWithInitial_NilInitialBehavesLikeRun(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 5.0},
	}, true)
	graph := labeled.Compact()

	driver, err := NewLeidenDriver(Params{UseModularity: true, RNG: NewSeededSource(2)})
	if err != nil {
		t.Fatalf("NewLeidenDriver: %v", err)
	}
	clustering, err := driver.RunWithInitial(graph, nil)
	if err != nil {
		t.Fatalf("RunWithInitial: %v", err)
	}
	if clustering.NumNodes() != 2 {
		t.Errorf("NumNodes() = %d, want 2", clustering.NumNodes())
	}
}
