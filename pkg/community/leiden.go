package community

// Params configures a single Leiden run.
type Params struct {
	// UseModularity selects modularity optimization; false selects CPM.
	UseModularity bool
	// Resolution is the user-facing resolution parameter; nil uses
	// DefaultResolution. adjustResolution rescales it for modularity mode.
	Resolution *float64
	// Randomness controls how greedily SubnetworkRefine samples among
	// admissible target clusters; smaller values behave more greedily.
	Randomness float64
	// Iterations is how many times the full local-move/refine/aggregate
	// body repeats against the same initial clustering. Zero means 1.
	Iterations int
	RNG        RandomSource
}

// Validate checks Params against the ranges the engine requires,
// returning ErrParameterRange on violation.
func (p Params) Validate() error {
	if p.Randomness <= 0 {
		return ErrParameterRange
	}
	if p.Resolution != nil && *p.Resolution <= 0 {
		return ErrParameterRange
	}
	if p.RNG == nil {
		return ErrParameterRange
	}
	return nil
}

// withDefaults fills in zero-valued optional fields.
func (p Params) withDefaults() Params {
	if p.Randomness == 0 {
		p.Randomness = DefaultRandomness
	}
	if p.Iterations == 0 {
		p.Iterations = 1
	}
	return p
}

// LeidenDriver runs the three-phase Leiden iteration: local move,
// subnetwork refinement, aggregation, and recursion on the induced graph.
type LeidenDriver struct {
	Params Params
}

// NewLeidenDriver validates params (after applying defaults) and returns
// a ready driver.
func NewLeidenDriver(params Params) (*LeidenDriver, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &LeidenDriver{Params: params}, nil
}

// Run clusters graph from scratch (every node its own cluster) and
// returns the resulting, compacted Clustering.
func (d *LeidenDriver) Run(graph *CompactGraph) (*Clustering, error) {
	return d.RunWithInitial(graph, nil)
}

// RunWithInitial clusters graph starting from initial (or, if nil, from
// every node in its own cluster). When an initial clustering is given, it
// first runs the sanity step: any cluster with more than one member that
// contains a node with no neighbor inside the cluster has that node
// split into a fresh singleton, since later phases assume every
// non-singleton cluster is connected in its induced subgraph. The
// local-move/refine/aggregate body then repeats Params.Iterations times
// against the (sanitized) initial clustering.
func (d *LeidenDriver) RunWithInitial(graph *CompactGraph, initial *Clustering) (*Clustering, error) {
	if graph.NumNodes() == 0 {
		return nil, ErrEmptyNetwork
	}

	var clustering *Clustering
	if initial != nil {
		if initial.NumNodes() != graph.NumNodes() {
			return nil, ErrInvalidCommunityMapping
		}
		for node := 0; node < initial.NumNodes(); node++ {
			cl := initial.MustClusterAt(node)
			if cl < 0 || cl >= initial.NextClusterID() || cl >= graph.NumNodes() {
				return nil, ErrInvalidCommunityMapping
			}
		}
		clustering = initial.Clone()
		sanitizeDisconnectedClusters(graph, clustering)
	} else {
		clustering = AsSelfClusters(graph.NumNodes())
	}

	iterations := d.Params.Iterations
	if iterations <= 0 {
		iterations = 1
	}
	for i := 0; i < iterations; i++ {
		if err := d.improveClustering(graph, clustering); err != nil {
			return nil, err
		}
	}
	return clustering, nil
}

// sanitizeDisconnectedClusters enforces the invariant every non-singleton
// cluster is internally connected in at least the trivial sense that
// each of its members has some neighbor in the cluster. A member with no
// such neighbor is moved into its own fresh singleton cluster, drawn from
// the same [0,numNodes) cluster-id universe FullNetworkMove reserves (via
// unusedClusterStack) rather than minted past it, so the clustering stays
// within the id bound the rest of this pass assumes.
func sanitizeDisconnectedClusters(graph *CompactGraph, clustering *Clustering) {
	numNodes := clustering.NumNodes()
	counts := make([]int, numNodes)
	for node := 0; node < numNodes; node++ {
		counts[clustering.MustClusterAt(node)]++
	}
	unused := newUnusedClusterStack(counts)

	for _, members := range clustering.NodesPerCluster() {
		if len(members) <= 1 {
			continue
		}
		inCluster := make(map[CompactNodeID]bool, len(members))
		for _, node := range members {
			inCluster[node] = true
		}
		for _, node := range members {
			hasInternalNeighbor := false
			graph.ForEachNeighbor(node, func(neighbor CompactNodeID, weight float64) {
				if inCluster[neighbor] {
					hasInternalNeighbor = true
				}
			})
			if !hasInternalNeighbor {
				freshID, ok := unused.top()
				if !ok {
					continue
				}
				oldCluster := clustering.MustClusterAt(node)
				counts[oldCluster]--
				if counts[oldCluster] == 0 {
					unused.push(oldCluster)
				}
				clustering.UpdateClusterAt(node, freshID)
				counts[freshID]++
				unused.pop(freshID)
			}
		}
	}
}

// improveClustering is the recursive body of the Leiden algorithm: it
// mutates clustering in place via full-network move, refines within each
// resulting cluster's induced subnetwork, aggregates into an induced
// graph, recurses, and composes the recursive result back onto
// clustering. Recursion continues only while the full-network move
// actually reduced the cluster count below the node count; once every
// node is already its own cluster, there is nothing left to aggregate.
func (d *LeidenDriver) improveClustering(graph *CompactGraph, clustering *Clustering) error {
	move := FullNetworkMove{
		UseModularity: d.Params.UseModularity,
		Resolution:    d.Params.Resolution,
		RNG:           d.Params.RNG,
	}
	if _, err := move.Run(graph, clustering); err != nil {
		return err
	}
	if clustering.NextClusterID() >= graph.NumNodes() {
		return nil
	}

	adjusted := adjustResolution(d.Params.Resolution, graph, d.Params.UseModularity)
	refiner := NewSubnetworkRefineGenerator()

	refined := AsDefined(make([]int, graph.NumNodes()), 0)
	// subnetworkClusterCounts[i] is the number of refined clusters produced
	// from the i'th (by cluster id) full-network cluster; it seeds the
	// induced network's initial clustering below.
	var subnetworkClusterCounts []int
	for _, sub := range graph.Subnetworks(clustering, 1) {
		subClustering, err := refiner.Refine(sub.Graph, d.Params.UseModularity, adjusted, d.Params.Randomness, d.Params.RNG)
		if err != nil {
			return err
		}
		refined.MergeSubnetworkClustering(sub.NodeIDMap, subClustering)
		subnetworkClusterCounts = append(subnetworkClusterCounts, subClustering.NextClusterID())
	}

	inducedGraph, err := graph.InduceFromClustering(refined)
	if err != nil {
		return err
	}

	inducedClustering := initialClusteringForInduced(subnetworkClusterCounts, inducedGraph.NumNodes())
	if err := d.improveClustering(inducedGraph, inducedClustering); err != nil {
		return err
	}

	// refined maps original nodes -> induced-graph node ids; inducedClustering
	// (after recursion) maps induced-graph node ids -> final cluster ids.
	// Replacing clustering's contents with refined's and then merging
	// inducedClustering on top composes the two into the final mapping.
	clustering.assignFrom(refined)
	clustering.MergeClustering(inducedClustering)
	return nil
}

// initialClusteringForInduced builds the induced network's starting
// clustering from the non-refined (full-network-move) clustering, rather
// than starting the recursive call from singletons: MergeSubnetworkClustering
// lays induced-graph node ids out in consecutive blocks, one block per
// full-network cluster, so the i'th full-network cluster's refined
// clusters occupy subnetworkClusterCounts[i] consecutive induced node ids.
// Grouping each block back under cluster id i recovers that structure.
func initialClusteringForInduced(subnetworkClusterCounts []int, numNodes int) *Clustering {
	mapping := make([]int, 0, numNodes)
	for clusterID, count := range subnetworkClusterCounts {
		for i := 0; i < count; i++ {
			mapping = append(mapping, clusterID)
		}
	}
	nextClusterID := 0
	if len(mapping) > 0 {
		nextClusterID = mapping[len(mapping)-1] + 1
	}
	return AsDefined(mapping, nextClusterID)
}
