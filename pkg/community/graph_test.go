package community

import "testing"

// buildEightNodeGraph constructs an 8-node labeled graph whose node "b"
// (compact id 1) has neighbors and weight matching the fixture in
// spec.md's neighbor-enumeration scenario: neighbors of node 1 in order
// [(0,2.0),(2,6.0),(4,1.0),(5,4.0),(6,3.0)], node_weight 16.0.
func buildEightNodeGraph(t *testing.T) *LabeledGraph[string] {
	t.Helper()
	labels := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	edges := []LabeledEdge[string]{
		{Source: "b", Target: "a", Weight: 2.0},
		{Source: "b", Target: "c", Weight: 6.0},
		{Source: "b", Target: "e", Weight: 1.0},
		{Source: "b", Target: "f", Weight: 4.0},
		{Source: "b", Target: "g", Weight: 3.0},
		{Source: "c", Target: "d", Weight: 5.0},
		{Source: "d", Target: "h", Weight: 7.0},
	}
	builder := NewLabeledGraphBuilder[string]()
	return builder.Build(labels, edges, true)
}

func TestLabeledGraph_NeighborEnumeration(t *testing.T) {
	labeled := buildEightNodeGraph(t)
	graph := labeled.Compact()

	bID, ok := labeled.CompactIDFor("b")
	if !ok {
		t.Fatalf("expected node b to be present")
	}
	if got := graph.NodeWeight(bID); got != 16.0 {
		t.Fatalf("node_weight(b) = %v, want 16.0", got)
	}

	neighbors := graph.Neighbors(bID)
	want := []struct {
		label  string
		weight float64
	}{
		{"a", 2.0}, {"c", 6.0}, {"e", 1.0}, {"f", 4.0}, {"g", 3.0},
	}
	if len(neighbors) != len(want) {
		t.Fatalf("got %d neighbors, want %d", len(neighbors), len(want))
	}
	for i, n := range neighbors {
		wantID, _ := labeled.CompactIDFor(want[i].label)
		if n.ID != wantID || n.Weight != want[i].weight {
			t.Errorf("neighbor %d = (%d,%v), want (%d,%v)", i, n.ID, n.Weight, wantID, want[i].weight)
		}
	}
}

func TestCompactGraph_TotalEdgeWeightAndSelfLoops(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "x", Target: "y", Weight: 3.0},
		{Source: "x", Target: "x", Weight: 5.0},
	}, true)
	graph := labeled.Compact()

	if got := graph.TotalEdgeWeight(); got != 3.0 {
		t.Errorf("TotalEdgeWeight = %v, want 3.0", got)
	}
	if got := graph.TotalSelfLoopWeight(); got != 5.0 {
		t.Errorf("TotalSelfLoopWeight = %v, want 5.0", got)
	}
	xID, _ := labeled.CompactIDFor("x")
	for _, n := range graph.Neighbors(xID) {
		if n.ID == xID {
			t.Errorf("self-loop leaked into neighbor list for x")
		}
	}
}

func TestCompactGraph_InduceFromClustering_IdentityIsIsomorphic(t *testing.T) {
	labeled := buildEightNodeGraph(t)
	graph := labeled.Compact()

	identity := AsSelfClusters(graph.NumNodes())
	induced, err := graph.InduceFromClustering(identity)
	if err != nil {
		t.Fatalf("InduceFromClustering: %v", err)
	}
	if induced.NumNodes() != graph.NumNodes() {
		t.Fatalf("induced NumNodes = %d, want %d", induced.NumNodes(), graph.NumNodes())
	}
	if induced.NumEdges() != graph.NumEdges() {
		t.Fatalf("induced NumEdges = %d, want %d", induced.NumEdges(), graph.NumEdges())
	}
	if induced.TotalSelfLoopWeight() != graph.TotalSelfLoopWeight() {
		t.Fatalf("induced TotalSelfLoopWeight = %v, want %v", induced.TotalSelfLoopWeight(), graph.TotalSelfLoopWeight())
	}
	for node := 0; node < graph.NumNodes(); node++ {
		if induced.NodeWeight(node) != graph.NodeWeight(node) {
			t.Errorf("node %d weight = %v, want %v", node, induced.NodeWeight(node), graph.NodeWeight(node))
		}
	}
}

func TestCompactGraph_InduceFromClustering_RejectsZeroClusters(t *testing.T) {
	labeled := buildEightNodeGraph(t)
	graph := labeled.Compact()
	empty := AsDefined(make([]int, graph.NumNodes()), 0)
	if _, err := graph.InduceFromClustering(empty); err != ErrUnsafeInducement {
		t.Fatalf("expected ErrUnsafeInducement, got %v", err)
	}
}

// TestLabeledGraph_NeighborEnumeration_CPMMode repeats the node-b
// neighbor-enumeration fixture in CPM mode, where every node's weight is
// forced to 1.0 regardless of incident edge weight, while the neighbor
// list and per-edge weights are unaffected.
func TestLabeledGraph_NeighborEnumeration_CPMMode(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	edges := []LabeledEdge[string]{
		{Source: "b", Target: "a", Weight: 2.0},
		{Source: "b", Target: "c", Weight: 6.0},
		{Source: "b", Target: "e", Weight: 1.0},
		{Source: "b", Target: "f", Weight: 4.0},
		{Source: "b", Target: "g", Weight: 3.0},
		{Source: "c", Target: "d", Weight: 5.0},
		{Source: "d", Target: "h", Weight: 7.0},
	}
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(labels, edges, false)
	graph := labeled.Compact()

	bID, _ := labeled.CompactIDFor("b")
	if got := graph.NodeWeight(bID); got != 1.0 {
		t.Fatalf("CPM node_weight(b) = %v, want 1.0", got)
	}

	neighbors := graph.Neighbors(bID)
	want := []struct {
		label  string
		weight float64
	}{
		{"a", 2.0}, {"c", 6.0}, {"e", 1.0}, {"f", 4.0}, {"g", 3.0},
	}
	if len(neighbors) != len(want) {
		t.Fatalf("got %d neighbors, want %d", len(neighbors), len(want))
	}
	for i, n := range neighbors {
		wantID, _ := labeled.CompactIDFor(want[i].label)
		if n.ID != wantID || n.Weight != want[i].weight {
			t.Errorf("neighbor %d = (%d,%v), want (%d,%v)", i, n.ID, n.Weight, wantID, want[i].weight)
		}
	}
}

func TestCompactGraph_Subnetworks_MinimumSizeFilter(t *testing.T) {
	labeled := buildEightNodeGraph(t)
	graph := labeled.Compact()

	// Cluster 0: a,b,c,d,e,f,g (7 nodes). Cluster 1: h alone (size 1).
	hID, _ := labeled.CompactIDFor("h")
	mapping := make([]int, graph.NumNodes())
	for i := range mapping {
		mapping[i] = 0
	}
	mapping[hID] = 1
	clustering := AsDefined(mapping, 2)

	all := graph.Subnetworks(clustering, 0)
	if len(all) != 2 {
		t.Fatalf("with no minimum, expected 2 subnetworks, got %d", len(all))
	}

	filtered := graph.Subnetworks(clustering, 2)
	if len(filtered) != 1 {
		t.Fatalf("with minimumSize=2, expected the size-1 cluster dropped, got %d subnetworks", len(filtered))
	}
	if filtered[0].Cluster != 0 {
		t.Errorf("expected the surviving subnetwork to be cluster 0, got %d", filtered[0].Cluster)
	}
}

func TestCompactGraph_InduceSubnetwork_DropsOutsideEdges(t *testing.T) {
	labeled := buildEightNodeGraph(t)
	graph := labeled.Compact()

	bID, _ := labeled.CompactIDFor("b")
	aID, _ := labeled.CompactIDFor("a")
	cID, _ := labeled.CompactIDFor("c")

	sub, nodeIDMap := graph.InduceSubnetwork([]CompactNodeID{aID, bID, cID})
	if sub.NumNodes() != 3 {
		t.Fatalf("sub.NumNodes() = %d, want 3", sub.NumNodes())
	}
	if len(nodeIDMap) != 3 {
		t.Fatalf("len(nodeIDMap) = %d, want 3", len(nodeIDMap))
	}
	// b's neighbors e,f,g are outside the subset and must be dropped,
	// leaving only a and c.
	for newID, oldID := range nodeIDMap {
		if oldID == bID {
			if got := len(sub.Neighbors(newID)); got != 2 {
				t.Errorf("b's subnetwork neighbor count = %d, want 2", got)
			}
		}
	}
}
