package community

import "math"

// neighboringClusters accumulates, for the node currently being
// processed, the total edge weight landing in each cluster its
// neighbors belong to. It uses a NaN-sentinel vector so membership can
// be tested and reset in O(1) per touched cluster rather than by
// clearing the whole vector every time.
type neighboringClusters struct {
	clusters       []int
	weightByCl     []float64
	currentCluster int
	hasCurrent     bool
}

func newNeighboringClusters(numClusters int) *neighboringClusters {
	weights := make([]float64, numClusters+1)
	for i := range weights {
		weights[i] = math.NaN()
	}
	return &neighboringClusters{weightByCl: weights}
}

func (n *neighboringClusters) resetForCurrentCluster(current int) {
	if n.hasCurrent {
		n.weightByCl[n.currentCluster] = math.NaN()
		for _, cl := range n.clusters {
			n.weightByCl[cl] = math.NaN()
		}
		n.clusters = n.clusters[:0]
	}
	n.currentCluster = current
	n.hasCurrent = true
}

func (n *neighboringClusters) increaseClusterWeight(cluster int, weight float64) {
	if math.IsNaN(n.weightByCl[cluster]) {
		n.clusters = append(n.clusters, cluster)
		n.weightByCl[cluster] = 0
	}
	n.weightByCl[cluster] += weight
}

// freeze ensures the current cluster has a recorded (possibly zero)
// weight even if no neighbor belongs to it, so bestClusterFor always
// considers staying put.
func (n *neighboringClusters) freeze() {
	if n.hasCurrent && math.IsNaN(n.weightByCl[n.currentCluster]) {
		n.weightByCl[n.currentCluster] = 0
	}
}

func (n *neighboringClusters) clusterWeight(cluster int) float64 {
	return n.weightByCl[cluster]
}

func (n *neighboringClusters) iterate(fn func(cluster int)) {
	for _, cl := range n.clusters {
		fn(cl)
	}
}

// unusedClusterStack tracks, within the full [0,numNodes) cluster-id
// space reserved for one FullNetworkMove pass, which ids are currently
// unoccupied. Its top is always offered to the node under evaluation as a
// zero-weight candidate cluster, so a node can break away into a cluster
// of its own even though the work queue only ever revisits existing
// nodes: an empty cluster is always a candidate.
type unusedClusterStack struct {
	ids []int
}

// newUnusedClusterStack seeds the stack from per-cluster node counts
// (sized numNodes): any id with zero members is already unused.
func newUnusedClusterStack(numNodesPerCluster []int) *unusedClusterStack {
	s := &unusedClusterStack{}
	for cluster := len(numNodesPerCluster) - 1; cluster >= 0; cluster-- {
		if numNodesPerCluster[cluster] == 0 {
			s.ids = append(s.ids, cluster)
		}
	}
	return s
}

func (s *unusedClusterStack) push(cluster int) {
	s.ids = append(s.ids, cluster)
}

// pop removes cluster from the top of the stack if it is there; it is a
// no-op otherwise, matching the case where a node joins a cluster that
// was never the currently-offered empty candidate.
func (s *unusedClusterStack) pop(cluster int) {
	if len(s.ids) > 0 && s.ids[len(s.ids)-1] == cluster {
		s.ids = s.ids[:len(s.ids)-1]
	}
}

// top returns the cluster id currently offered as the empty-cluster
// candidate and whether the stack is non-empty.
func (s *unusedClusterStack) top() (int, bool) {
	if len(s.ids) == 0 {
		return 0, false
	}
	return s.ids[len(s.ids)-1], true
}

// FullNetworkMove runs the first Leiden phase: a work-queue-driven pass
// of fast local moves across the whole graph, optimizing quality under
// the supplied resolution. Run updates the Clustering in place, compacts
// it when any node moved, and reports whether any node moved.
type FullNetworkMove struct {
	UseModularity bool
	Resolution    *float64
	RNG           RandomSource
}

// Run executes the phase starting from clustering c (mutated in place)
// and returns whether any move occurred.
func (m FullNetworkMove) Run(graph *CompactGraph, c *Clustering) (bool, error) {
	adjusted := adjustResolution(m.Resolution, graph, m.UseModularity)
	numNodes := graph.NumNodes()

	// weights and counts are sized to the full [0,numNodes) cluster-id
	// space, not just the ids currently in use by c, so a node can be
	// offered a cluster id that nobody has ever been assigned to yet.
	weights := make([]float64, numNodes)
	counts := make([]int, numNodes)
	for node := 0; node < numNodes; node++ {
		cl, err := c.ClusterAt(node)
		if err != nil {
			return false, err
		}
		weights[cl] += graph.NodeWeight(node)
		counts[cl]++
	}

	queue := itemsInRandomOrder(numNodes, m.RNG)
	nc := newNeighboringClusters(numNodes)
	unused := newUnusedClusterStack(counts)

	improved := false

	for !queue.IsEmpty() {
		node, err := queue.PopFront()
		if err != nil {
			return false, err
		}

		currentCluster, err := c.ClusterAt(node)
		if err != nil {
			return false, err
		}

		nodeWeight := graph.NodeWeight(node)
		weights[currentCluster] -= nodeWeight
		counts[currentCluster]--
		if counts[currentCluster] == 0 {
			unused.push(currentCluster)
		}

		nc.resetForCurrentCluster(currentCluster)
		if emptyCluster, ok := unused.top(); ok {
			nc.increaseClusterWeight(emptyCluster, 0)
		}
		graph.ForEachNeighbor(node, func(neighbor CompactNodeID, weight float64) {
			neighborCluster, _ := c.ClusterAt(neighbor)
			nc.increaseClusterWeight(neighborCluster, weight)
		})
		nc.freeze()

		bestCluster := currentCluster
		bestQuality := qualityIncrement(nc.clusterWeight(currentCluster), nodeWeight, weights[currentCluster], adjusted)

		nc.iterate(func(cluster int) {
			if cluster == currentCluster {
				return
			}
			qvi := qualityIncrement(nc.clusterWeight(cluster), nodeWeight, weights[cluster], adjusted)
			if qvi > bestQuality {
				bestQuality = qvi
				bestCluster = cluster
			}
		})

		weights[bestCluster] += nodeWeight
		counts[bestCluster]++
		unused.pop(bestCluster)

		if bestCluster != currentCluster {
			if err := c.UpdateClusterAt(node, bestCluster); err != nil {
				return false, err
			}
			improved = true

			graph.ForEachNeighbor(node, func(neighbor CompactNodeID, _ float64) {
				neighborCluster, _ := c.ClusterAt(neighbor)
				if neighborCluster != bestCluster {
					queue.PushBack(neighbor)
				}
			})
		}
	}

	if improved {
		c.RemoveEmptyClusters()
	}
	return improved, nil
}
