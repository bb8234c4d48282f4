package community

// Clustering maps nodes to cluster ids. It is intentionally a thin,
// leaky abstraction: its details are spilled to the algorithm that uses
// it for runtime reasons, but nextClusterID is only guaranteed to equal
// the true number of clusters after RemoveEmptyClusters has run.
type Clustering struct {
	nextClusterID        int
	nodeToClusterMapping []int
}

// NewClustering returns an empty Clustering with no nodes.
func NewClustering() *Clustering {
	return &Clustering{}
}

// AsSelfClusters returns a Clustering where every node is its own
// cluster: node i is in cluster i.
func AsSelfClusters(numNodes int) *Clustering {
	mapping := make([]int, numNodes)
	for i := range mapping {
		mapping[i] = i
	}
	return &Clustering{nextClusterID: numNodes, nodeToClusterMapping: mapping}
}

// AsDefined wraps caller-provided data with no validation. Use responsibly.
func AsDefined(nodeToClusterMapping []int, nextClusterID int) *Clustering {
	return &Clustering{nodeToClusterMapping: nodeToClusterMapping, nextClusterID: nextClusterID}
}

// NumNodes returns the number of nodes tracked by this Clustering.
func (c *Clustering) NumNodes() int {
	return len(c.nodeToClusterMapping)
}

// NextClusterID returns the next safe, never-yet-used cluster id. After
// RemoveEmptyClusters this also equals the total cluster count.
func (c *Clustering) NextClusterID() int {
	return c.nextClusterID
}

// ClusterAt returns the cluster id assigned to node.
func (c *Clustering) ClusterAt(node int) (int, error) {
	if node < 0 || node >= len(c.nodeToClusterMapping) {
		return 0, ErrClusterIndexing
	}
	return c.nodeToClusterMapping[node], nil
}

// MustClusterAt is ClusterAt without the error return, for call sites
// that have already validated node is in range.
func (c *Clustering) MustClusterAt(node int) int {
	return c.nodeToClusterMapping[node]
}

// UpdateClusterAt assigns node to cluster, growing nextClusterID if
// necessary.
func (c *Clustering) UpdateClusterAt(node, cluster int) error {
	if node < 0 || node >= len(c.nodeToClusterMapping) {
		return ErrClusterIndexing
	}
	c.nodeToClusterMapping[node] = cluster
	if cluster+1 > c.nextClusterID {
		c.nextClusterID = cluster + 1
	}
	return nil
}

// NumNodesPerCluster returns, indexed by cluster id, the count of nodes
// assigned to it.
func (c *Clustering) NumNodesPerCluster() []int {
	counts := make([]int, c.nextClusterID)
	for _, cl := range c.nodeToClusterMapping {
		counts[cl]++
	}
	return counts
}

// NodesPerCluster returns, indexed by cluster id, the list of node ids
// assigned to it.
func (c *Clustering) NodesPerCluster() [][]int {
	counts := c.NumNodesPerCluster()
	out := make([][]int, c.nextClusterID)
	for i, n := range counts {
		out[i] = make([]int, 0, n)
	}
	for node, cl := range c.nodeToClusterMapping {
		out[cl] = append(out[cl], node)
	}
	return out
}

// RemoveEmptyClusters compacts cluster ids so that the clustering starts
// at 0, has no empty clusters, and is numbered continuously. After this
// call, NextClusterID is the true number of clusters.
func (c *Clustering) RemoveEmptyClusters() {
	nonEmpty := make([]bool, c.nextClusterID)
	for _, cl := range c.nodeToClusterMapping {
		nonEmpty[cl] = true
	}

	newIndex := 0
	lookup := make([]int, c.nextClusterID)
	for i, present := range nonEmpty {
		if present {
			lookup[i] = newIndex
			newIndex++
		}
	}
	c.nextClusterID = newIndex

	for i, cl := range c.nodeToClusterMapping {
		c.nodeToClusterMapping[i] = lookup[cl]
	}
}

// ResetNextClusterID zeroes nextClusterID; used before reusing a
// Clustering's storage for a fresh pass.
func (c *Clustering) ResetNextClusterID() {
	c.nextClusterID = 0
}

// MergeSubnetworkClustering folds a subnetwork's local clustering back
// into this clustering, offsetting every subnetwork cluster id by this
// clustering's current nextClusterID so subnetwork clusters from
// different source clusters never collide.
func (c *Clustering) MergeSubnetworkClustering(nodeIDMap []CompactNodeID, subnetworkClustering *Clustering) {
	for newID, oldID := range nodeIDMap {
		c.nodeToClusterMapping[oldID] = c.nextClusterID + subnetworkClustering.nodeToClusterMapping[newID]
	}
	c.nextClusterID += subnetworkClustering.nextClusterID
}

// MergeClustering reinterprets other as a relabeling of this clustering's
// cluster ids: other.NumNodes() must equal this clustering's current
// cluster count, and after the call every node's cluster is
// other's mapping applied to its old cluster id.
func (c *Clustering) MergeClustering(other *Clustering) {
	for i, cl := range c.nodeToClusterMapping {
		c.nodeToClusterMapping[i] = other.nodeToClusterMapping[cl]
	}
	c.nextClusterID = other.nextClusterID
}

// assignFrom replaces this clustering's contents with other's, used when
// composing an intermediate relabeling (e.g. the refined/induced mapping
// produced mid-way through a Leiden pass) before merging a further
// relabeling on top of it via MergeClustering.
func (c *Clustering) assignFrom(other *Clustering) {
	c.nodeToClusterMapping = other.nodeToClusterMapping
	c.nextClusterID = other.nextClusterID
}

// Clone returns a deep copy.
func (c *Clustering) Clone() *Clustering {
	mapping := append([]int(nil), c.nodeToClusterMapping...)
	return &Clustering{nextClusterID: c.nextClusterID, nodeToClusterMapping: mapping}
}

// AsMap returns a node->cluster map, primarily for test assertions and
// diagnostic output.
func (c *Clustering) AsMap() map[int]int {
	m := make(map[int]int, len(c.nodeToClusterMapping))
	for node, cl := range c.nodeToClusterMapping {
		m[node] = cl
	}
	return m
}
