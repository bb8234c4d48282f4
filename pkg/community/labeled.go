package community

import "sort"

// identifier assigns dense ids to labels in first-seen order, exactly
// the way the underlying engine's label bookkeeping works: the first
// occurrence of a label mints a new id, every later occurrence reuses it.
type identifier[T comparable] struct {
	originalToNew map[T]CompactNodeID
	newToOriginal []T
}

func newIdentifier[T comparable]() *identifier[T] {
	return &identifier[T]{originalToNew: make(map[T]CompactNodeID)}
}

func (id *identifier[T]) identify(label T) CompactNodeID {
	if existing, ok := id.originalToNew[label]; ok {
		return existing
	}
	newID := len(id.newToOriginal)
	id.originalToNew[label] = newID
	id.newToOriginal = append(id.newToOriginal, label)
	return newID
}

// LabeledEdge is one input edge in label space, as consumed by
// LabeledGraphBuilder.Build.
type LabeledEdge[T comparable] struct {
	Source T
	Target T
	Weight float64
}

// LabeledGraph wraps a CompactGraph with a stable, bidirectional mapping
// between external labels of type T and the CompactGraph's dense node ids.
type LabeledGraph[T comparable] struct {
	graph       *CompactGraph
	labelsToID  map[T]CompactNodeID
	idsToLabels []T
}

// Compact returns the underlying packed graph.
func (l *LabeledGraph[T]) Compact() *CompactGraph {
	return l.graph
}

// CompactIDFor returns the dense id assigned to label, if any.
func (l *LabeledGraph[T]) CompactIDFor(label T) (CompactNodeID, bool) {
	id, ok := l.labelsToID[label]
	return id, ok
}

// LabelFor returns the label assigned to a dense id.
func (l *LabeledGraph[T]) LabelFor(id CompactNodeID) T {
	return l.idsToLabels[id]
}

// LabeledIDs iterates every (id, label) pair in id order.
func (l *LabeledGraph[T]) LabeledIDs(fn func(id CompactNodeID, label T)) {
	for id, label := range l.idsToLabels {
		fn(id, label)
	}
}

// LabeledGraphBuilder accumulates edges in label space and produces a
// LabeledGraph. Reused builders reset their scratch state on each Build
// call, mirroring the reusable-allocation discipline the rest of the
// engine follows for its hot-path scratch buffers.
type LabeledGraphBuilder[T comparable] struct {
	nodeToNeighbors map[CompactNodeID]map[CompactNodeID]float64
	identifier      *identifier[T]
}

// NewLabeledGraphBuilder returns an empty builder.
func NewLabeledGraphBuilder[T comparable]() *LabeledGraphBuilder[T] {
	return &LabeledGraphBuilder[T]{
		nodeToNeighbors: make(map[CompactNodeID]map[CompactNodeID]float64),
		identifier:      newIdentifier[T](),
	}
}

// Build consumes a label set and an edge stream and produces a
// LabeledGraph. nodeLabels seeds every node that must appear in the
// result even if it has no incident edges; labels already seen in edges
// are harmless duplicates. Duplicate (source, target) pairs keep the
// first-seen weight; subsequent duplicates are ignored. Self-loops are
// accumulated into the graph's total self-loop weight and excluded from
// neighbor lists. When useModularity is false (CPM mode), every node's
// weight is forced to 1.0 regardless of its summed edge weight.
func (b *LabeledGraphBuilder[T]) Build(nodeLabels []T, edges []LabeledEdge[T], useModularity bool) *LabeledGraph[T] {
	clear(b.nodeToNeighbors)
	b.identifier = newIdentifier[T]()

	for _, label := range nodeLabels {
		b.identifier.identify(label)
	}

	for _, e := range edges {
		sourceID := b.identifier.identify(e.Source)
		targetID := b.identifier.identify(e.Target)

		forward, ok := b.nodeToNeighbors[sourceID]
		if !ok {
			forward = make(map[CompactNodeID]float64)
			b.nodeToNeighbors[sourceID] = forward
		}
		if _, exists := forward[targetID]; !exists {
			forward[targetID] = e.Weight
		}

		backward, ok := b.nodeToNeighbors[targetID]
		if !ok {
			backward = make(map[CompactNodeID]float64)
			b.nodeToNeighbors[targetID] = backward
		}
		if _, exists := backward[sourceID]; !exists {
			backward[sourceID] = e.Weight
		}
	}

	idsToLabels := append([]T(nil), b.identifier.newToOriginal...)
	labelsToID := make(map[T]CompactNodeID, len(idsToLabels))
	for label, id := range b.identifier.originalToNew {
		labelsToID[label] = id
	}

	type pending struct {
		id     CompactNodeID
		weight float64
	}

	nodes := make([]compactNode, len(idsToLabels))
	var neighbors []compactNeighbor
	var totalSelfLoopWeight float64

	for nodeID := 0; nodeID < len(idsToLabels); nodeID++ {
		var nodeWeight float64
		local := make([]pending, 0, len(b.nodeToNeighbors[nodeID]))
		for nb, w := range b.nodeToNeighbors[nodeID] {
			local = append(local, pending{id: nb, weight: w})
		}
		sort.Slice(local, func(i, j int) bool { return local[i].id < local[j].id })

		nodes[nodeID] = compactNode{neighborOffset: len(neighbors)}
		for _, p := range local {
			if p.id == nodeID {
				totalSelfLoopWeight += p.weight
				continue
			}
			nodeWeight += p.weight
			neighbors = append(neighbors, compactNeighbor{id: p.id, weight: p.weight})
		}
		if !useModularity {
			nodeWeight = 1.0
		}
		nodes[nodeID].weight = nodeWeight
	}

	graph := &CompactGraph{nodes: nodes, neighbors: neighbors, totalSelfLoopWeight: totalSelfLoopWeight}
	return &LabeledGraph[T]{graph: graph, labelsToID: labelsToID, idsToLabels: idsToLabels}
}
