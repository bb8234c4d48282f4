package community

import "testing"

func TestApproxExp_MatchesMathExpApproximately(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 1},
		{-1000, 0},
	}
	for _, c := range cases {
		got := approxExp(c.x)
		if got != c.want {
			t.Errorf("approxExp(%v) = %v, want %v", c.x, got, c.want)
		}
	}

	// For small negative x, approxExp should be close to a monotonically
	// decreasing curve between 0 and 1.
	prev := approxExp(0)
	for _, x := range []float64{-1, -10, -50, -100, -200} {
		got := approxExp(x)
		if got < 0 || got > 1 {
			t.Errorf("approxExp(%v) = %v, want in [0,1]", x, got)
		}
		if got > prev {
			t.Errorf("approxExp should decrease as x decreases: approxExp(%v)=%v > previous %v", x, got, prev)
		}
		prev = got
	}
}

func TestSubnetworkRefine_SingleNodeShortCircuits(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build([]string{"solo"}, nil, true)
	graph := labeled.Compact()

	gen := NewSubnetworkRefineGenerator()
	clustering, err := gen.Refine(graph, true, 1.0, DefaultRandomness, NewSeededSource(1))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if clustering.NumNodes() != 1 || clustering.MustClusterAt(0) != 0 {
		t.Errorf("expected single self-cluster, got %+v", clustering.AsMap())
	}
}

func TestSubnetworkRefine_StronglyConnectedPairMerges(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 100.0},
	}, true)
	graph := labeled.Compact()

	gen := NewSubnetworkRefineGenerator()
	adjusted := adjustResolution(nil, graph, true)
	clustering, err := gen.Refine(graph, true, adjusted, DefaultRandomness, NewSeededSource(42))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	aID, _ := labeled.CompactIDFor("a")
	bID, _ := labeled.CompactIDFor("b")
	if clustering.MustClusterAt(aID) != clustering.MustClusterAt(bID) {
		t.Errorf("expected a strongly connected pair to merge during refinement")
	}
}
