package community

// DefaultResolution is used whenever a caller does not specify a
// resolution parameter.
const DefaultResolution = 1.0

// qualityIncrement computes the change in quality (modularity or CPM,
// whichever adjustedResolution was derived for) from moving a node into
// a cluster: the reference/Smart Local Moving form, not the alternate
// "paper" form. edgeWeightToCluster is the node's total edge weight into
// the candidate cluster; clusterWeight excludes the node itself.
func qualityIncrement(edgeWeightToCluster, nodeWeight, clusterWeight, adjustedResolution float64) float64 {
	return edgeWeightToCluster - nodeWeight*clusterWeight*adjustedResolution
}

// adjustResolution rescales a user-supplied resolution parameter so it
// can be used uniformly inside qualityIncrement regardless of which
// quality function is in play. For CPM, resolution passes through
// unchanged. For modularity, it is scaled by
// 1 / (2 * (totalEdgeWeight + totalSelfLoopWeight)); this is a
// deliberate correction to a resolution factor found in the CWTSLeiden
// Java reference implementation, which appears to apply `resolution / m`
// rather than `resolution / 2m` for modularity.
func adjustResolution(resolution *float64, graph *CompactGraph, useModularity bool) float64 {
	r := DefaultResolution
	if resolution != nil {
		r = *resolution
	}
	if !useModularity {
		return r
	}
	return r / (2 * (graph.TotalEdgeWeight() + graph.TotalSelfLoopWeight()))
}

// QualityEvaluator computes the global quality score (modularity or CPM)
// of a (graph, clustering) pair.
type QualityEvaluator struct {
	UseModularity bool
	Resolution    *float64
}

// Evaluate sums, over every node, the edge weight landing inside its own
// cluster, subtracts the expected term per cluster under the configured
// quality function, and divides by 2*TotalEdgeWeight() +
// TotalSelfLoopWeight() (the self-loop weight is counted once).
func (q QualityEvaluator) Evaluate(graph *CompactGraph, c *Clustering) (float64, error) {
	adjusted := adjustResolution(q.Resolution, graph, q.UseModularity)

	clusterWeight := make([]float64, c.NextClusterID())
	var quality float64

	for node := 0; node < graph.NumNodes(); node++ {
		cluster, err := c.ClusterAt(node)
		if err != nil {
			return 0, err
		}
		clusterWeight[cluster] += graph.NodeWeight(node)
		graph.ForEachNeighbor(node, func(neighbor CompactNodeID, weight float64) {
			nbCluster, _ := c.ClusterAt(neighbor)
			if nbCluster == cluster {
				quality += weight
			}
		})
	}

	for _, w := range clusterWeight {
		quality -= w * w * adjusted
	}

	quality /= 2*graph.TotalEdgeWeight() + graph.TotalSelfLoopWeight()
	return quality, nil
}
