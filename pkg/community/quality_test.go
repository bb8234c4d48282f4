package community

import "testing"

func TestAdjustResolution_ModularityRescales(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 4.0},
		{Source: "b", Target: "c", Weight: 2.0},
	}, true)
	graph := labeled.Compact()

	adjusted := adjustResolution(nil, graph, true)
	want := DefaultResolution / (2 * (graph.TotalEdgeWeight() + graph.TotalSelfLoopWeight()))
	if adjusted != want {
		t.Errorf("adjustResolution(modularity) = %v, want %v", adjusted, want)
	}
}

func TestAdjustResolution_CPMPassesThrough(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 4.0},
	}, false)
	graph := labeled.Compact()

	r := 0.75
	adjusted := adjustResolution(&r, graph, false)
	if adjusted != 0.75 {
		t.Errorf("adjustResolution(cpm) = %v, want 0.75", adjusted)
	}
}

func TestQualityIncrement(t *testing.T) {
	got := qualityIncrement(10.0, 2.0, 3.0, 0.5)
	want := 10.0 - 2.0*3.0*0.5
	if got != want {
		t.Errorf("qualityIncrement = %v, want %v", got, want)
	}
}

func TestQualityEvaluator_SingletonClustersYieldNegativeQuality(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 4.0},
		{Source: "b", Target: "c", Weight: 2.0},
	}, true)
	graph := labeled.Compact()

	singletons := AsSelfClusters(graph.NumNodes())
	evaluator := QualityEvaluator{UseModularity: true}
	q, err := evaluator.Evaluate(graph, singletons)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// Every node isolated means no intra-cluster edges contribute positive
	// quality, only the negative cluster_weight^2 term remains.
	if q >= 0 {
		t.Errorf("expected negative quality for all-singleton clustering, got %v", q)
	}
}

func TestQualityEvaluator_SingleClusterBeatsSingletons(t *testing.T) {
	builder := NewLabeledGraphBuilder[string]()
	labeled := builder.Build(nil, []LabeledEdge[string]{
		{Source: "a", Target: "b", Weight: 4.0},
		{Source: "b", Target: "c", Weight: 2.0},
	}, true)
	graph := labeled.Compact()

	evaluator := QualityEvaluator{UseModularity: true}

	singletons := AsSelfClusters(graph.NumNodes())
	singletonQuality, err := evaluator.Evaluate(graph, singletons)
	if err != nil {
		t.Fatalf("Evaluate(singletons): %v", err)
	}

	everyoneTogether := AsDefined([]int{0, 0, 0}, 1)
	togetherQuality, err := evaluator.Evaluate(graph, everyoneTogether)
	if err != nil {
		t.Fatalf("Evaluate(together): %v", err)
	}

	if togetherQuality <= singletonQuality {
		t.Errorf("expected grouping the connected path a-b-c to beat singletons: together=%v singleton=%v", togetherQuality, singletonQuality)
	}
}
