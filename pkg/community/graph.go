package community

import "sort"

// CompactNodeID is a dense node identifier in [0, NumNodes) for a
// CompactGraph. Induced and subnetwork graphs mint fresh CompactNodeIDs
// that are unrelated to any CompactNodeID in the graph they were derived
// from; callers that need to translate back use the nodeIDMap returned
// by InduceSubnetwork.
type CompactNodeID = int

// compactNode packs a node's total weight and the offset of its first
// neighbor in the shared neighbors slice.
type compactNode struct {
	weight         float64
	neighborOffset int
}

// compactNeighbor packs one entry of a node's neighbor list.
type compactNeighbor struct {
	id     CompactNodeID
	weight float64
}

// NeighborItem is a single neighbor as seen through the public iteration
// API: the neighbor's id and the weight of the edge connecting to it.
type NeighborItem struct {
	ID     CompactNodeID
	Weight float64
}

// CompactGraph is the packed CSR-style undirected weighted graph: nodes
// hold a node weight and an offset into a single shared neighbors slice,
// neighbors are sorted ascending by id within each node's range, and
// self-loops are excluded from the neighbor lists but accumulated into a
// single scalar total.
type CompactGraph struct {
	nodes               []compactNode
	neighbors           []compactNeighbor
	totalSelfLoopWeight float64
}

// NewCompactGraph builds a CompactGraph directly from packed slices. No
// validation is performed: callers are responsible for satisfying the
// invariants documented on CompactGraph.
func NewCompactGraph(nodes []compactNode, neighbors []compactNeighbor, totalSelfLoopWeight float64) *CompactGraph {
	return &CompactGraph{nodes: nodes, neighbors: neighbors, totalSelfLoopWeight: totalSelfLoopWeight}
}

// NumNodes returns the number of nodes in the graph.
func (g *CompactGraph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of (directed) neighbor entries, i.e. twice
// the number of undirected non-self-loop edges.
func (g *CompactGraph) NumEdges() int {
	return len(g.neighbors)
}

// NodeWeight returns the weight of a single node.
func (g *CompactGraph) NodeWeight(node CompactNodeID) float64 {
	return g.nodes[node].weight
}

// TotalNodeWeight returns the sum of all node weights.
func (g *CompactGraph) TotalNodeWeight() float64 {
	var total float64
	for _, n := range g.nodes {
		total += n.weight
	}
	return total
}

// TotalEdgeWeight returns the sum of edge weights, counting each
// undirected edge once.
func (g *CompactGraph) TotalEdgeWeight() float64 {
	var total float64
	for _, n := range g.neighbors {
		total += n.weight
	}
	return total / 2
}

// TotalSelfLoopWeight returns the accumulated self-loop weight.
func (g *CompactGraph) TotalSelfLoopWeight() float64 {
	return g.totalSelfLoopWeight
}

// neighborRange returns the [start, end) slice bounds of a node's
// neighbor entries within the shared neighbors slice.
func (g *CompactGraph) neighborRange(node CompactNodeID) (int, int) {
	start := g.nodes[node].neighborOffset
	if node+1 < len(g.nodes) {
		return start, g.nodes[node+1].neighborOffset
	}
	return start, len(g.neighbors)
}

// Neighbors returns the neighbor entries for a node, in ascending id
// order.
func (g *CompactGraph) Neighbors(node CompactNodeID) []NeighborItem {
	start, end := g.neighborRange(node)
	items := make([]NeighborItem, end-start)
	for i, n := range g.neighbors[start:end] {
		items[i] = NeighborItem{ID: n.id, Weight: n.weight}
	}
	return items
}

// ForEachNeighbor invokes fn for every neighbor of node without
// allocating an intermediate slice; used on the hot paths inside the
// Leiden phases.
func (g *CompactGraph) ForEachNeighbor(node CompactNodeID, fn func(neighbor CompactNodeID, weight float64)) {
	start, end := g.neighborRange(node)
	for _, n := range g.neighbors[start:end] {
		fn(n.id, n.weight)
	}
}

// TotalEdgeWeightPerNode returns, for every node, the sum of the weights
// of its incident edges (equivalent to NodeWeight when node weight was
// derived from modularity mode, but computed independently for CPM mode
// where node weight is fixed at 1.0).
func (g *CompactGraph) TotalEdgeWeightPerNode() []float64 {
	out := make([]float64, g.NumNodes())
	for i := range out {
		start, end := g.neighborRange(i)
		var sum float64
		for _, n := range g.neighbors[start:end] {
			sum += n.weight
		}
		out[i] = sum
	}
	return out
}

// NodeWeights returns a fresh copy of every node's weight, indexed by
// node id. This is the starting point for the per-cluster weight
// accumulators used by SubnetworkRefine.
func (g *CompactGraph) NodeWeights() []float64 {
	out := make([]float64, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.weight
	}
	return out
}

// InduceFromClustering builds the aggregated CompactGraph whose nodes are
// the clusters of c: cluster-to-cluster edge weights are summed across
// all member-node edges, and cluster self-loops accumulate both original
// self-loops and edges that now fall within the same cluster. c must be
// compacted (no empty clusters) or ErrUnsafeInducement is returned.
func (g *CompactGraph) InduceFromClustering(c *Clustering) (*CompactGraph, error) {
	numClusters := c.NextClusterID()
	if numClusters == 0 {
		return nil, ErrUnsafeInducement
	}

	nodeWeight := make([]float64, numClusters)
	memberCount := make([]int, numClusters)
	selfLoop := g.totalSelfLoopWeight
	// edgeWeights[u] maps neighboring cluster -> accumulated weight.
	edgeWeights := make(map[int]map[int]float64, numClusters)

	for node := 0; node < g.NumNodes(); node++ {
		cluster, err := c.ClusterAt(node)
		if err != nil {
			return nil, err
		}
		if cluster < 0 || cluster >= numClusters {
			return nil, ErrUnsafeInducement
		}
		memberCount[cluster]++
		nodeWeight[cluster] += g.nodes[node].weight
		start, end := g.neighborRange(node)
		for _, nb := range g.neighbors[start:end] {
			nbCluster, err := c.ClusterAt(nb.id)
			if err != nil {
				return nil, err
			}
			if nbCluster == cluster {
				// Each undirected intra-cluster edge is visited twice (once
				// from each endpoint); count it once as a self-loop.
				selfLoop += nb.weight / 2
				continue
			}
			m, ok := edgeWeights[cluster]
			if !ok {
				m = make(map[int]float64)
				edgeWeights[cluster] = m
			}
			m[nbCluster] += nb.weight
		}
	}
	for _, count := range memberCount {
		if count == 0 {
			return nil, ErrUnsafeInducement
		}
	}

	nodes := make([]compactNode, numClusters)
	var neighbors []compactNeighbor
	for cluster := 0; cluster < numClusters; cluster++ {
		nodes[cluster] = compactNode{weight: nodeWeight[cluster], neighborOffset: len(neighbors)}
		m := edgeWeights[cluster]
		if len(m) == 0 {
			continue
		}
		ids := make([]int, 0, len(m))
		for nb := range m {
			ids = append(ids, nb)
		}
		sort.Ints(ids)
		for _, nb := range ids {
			neighbors = append(neighbors, compactNeighbor{id: nb, weight: m[nb]})
		}
	}

	return &CompactGraph{nodes: nodes, neighbors: neighbors, totalSelfLoopWeight: selfLoop}, nil
}

// InduceSubnetwork extracts the induced subgraph over a set of node ids
// (which need not be contiguous or sorted) and returns both the subgraph
// and a nodeIDMap translating the subgraph's fresh CompactNodeIDs back to
// ids in this graph (subgraph node i corresponds to nodeIDMap[i] here).
// Edges to nodes outside the set are dropped. The subgraph's total
// self-loop weight is always 0: this graph's self-loop weight is not
// carried over.
func (g *CompactGraph) InduceSubnetwork(nodeIDs []CompactNodeID) (*CompactGraph, []CompactNodeID) {
	nodeIDMap := append([]CompactNodeID(nil), nodeIDs...)
	sort.Ints(nodeIDMap)

	remap := make(map[CompactNodeID]CompactNodeID, len(nodeIDMap))
	for newID, oldID := range nodeIDMap {
		remap[oldID] = newID
	}

	nodes := make([]compactNode, len(nodeIDMap))
	var neighbors []compactNeighbor

	for newID, oldID := range nodeIDMap {
		nodes[newID] = compactNode{weight: g.nodes[oldID].weight, neighborOffset: len(neighbors)}
		start, end := g.neighborRange(oldID)
		// collect, then sort by new id, since membership in remap does not
		// preserve old-id ascending order.
		type pending struct {
			id     CompactNodeID
			weight float64
		}
		var local []pending
		for _, nb := range g.neighbors[start:end] {
			if newNb, ok := remap[nb.id]; ok {
				local = append(local, pending{id: newNb, weight: nb.weight})
			}
		}
		sort.Slice(local, func(i, j int) bool { return local[i].id < local[j].id })
		for _, p := range local {
			neighbors = append(neighbors, compactNeighbor{id: p.id, weight: p.weight})
		}
	}

	return &CompactGraph{nodes: nodes, neighbors: neighbors, totalSelfLoopWeight: 0}, nodeIDMap
}

// Subnetworks partitions the graph by clustering c and returns one
// induced CompactGraph per non-empty cluster, skipping clusters whose
// size is below minimumSize when minimumSize > 0. The returned slice is
// ordered by cluster id, and each subnetwork carries the nodeIDMap needed
// to translate its local ids back to this graph's ids.
type Subnetwork struct {
	Cluster   int
	Graph     *CompactGraph
	NodeIDMap []CompactNodeID
}

func (g *CompactGraph) Subnetworks(c *Clustering, minimumSize int) []Subnetwork {
	perCluster := c.NodesPerCluster()
	out := make([]Subnetwork, 0, len(perCluster))
	for cluster, members := range perCluster {
		if len(members) == 0 {
			continue
		}
		if minimumSize > 0 && len(members) < minimumSize {
			continue
		}
		sub, nodeIDMap := g.InduceSubnetwork(members)
		out = append(out, Subnetwork{Cluster: cluster, Graph: sub, NodeIDMap: nodeIDMap})
	}
	return out
}
