package community

import (
	"math"
	"sort"
)

// DefaultRandomness is the randomness parameter used by SubnetworkRefine
// when the caller does not specify one.
const DefaultRandomness = 1e-2

// SubnetworkRefineGenerator holds scratch buffers for subnetwork
// refinement calls. The node processing order and neighbor-cluster list
// keep their storage across calls; the per-node edge-weight and
// singleton vectors are allocated afresh for every subnetwork, and the
// cumulative sampling records are grown anew for every node.
type SubnetworkRefineGenerator struct {
	nodeProcessingOrder          []CompactNodeID
	neighboringClusters          []int
	neighboringClusterEdgeWeight []float64
	singletonClusters            []bool
	summedQVIRecords             []float64
}

// NewSubnetworkRefineGenerator returns an empty generator.
func NewSubnetworkRefineGenerator() *SubnetworkRefineGenerator {
	return &SubnetworkRefineGenerator{}
}

// Refine runs the randomized subnetwork refinement phase over subnetwork
// and returns the resulting Clustering. Every node starts as its own
// singleton cluster; nodes move only when admissible (singleton and
// sufficiently well connected), and among admissible target clusters the
// choice is sampled with probability proportional to an approximated
// exp(Δ/randomness), falling back to the single highest-Δ cluster if the
// cumulative weight is not finite.
func (g *SubnetworkRefineGenerator) Refine(
	subnetwork *CompactGraph,
	useModularity bool,
	adjustedResolution float64,
	randomness float64,
	rng RandomSource,
) (*Clustering, error) {
	clustering := AsSelfClusters(subnetwork.NumNodes())
	if subnetwork.NumNodes() == 1 {
		return clustering, nil
	}
	g.reset(subnetwork.NumNodes(), rng)

	improved := false

	clusterWeights := subnetwork.NodeWeights()
	var externalEdgeWeightPerCluster []float64
	if useModularity {
		externalEdgeWeightPerCluster = subnetwork.NodeWeights()
	} else {
		externalEdgeWeightPerCluster = subnetwork.TotalEdgeWeightPerNode()
	}
	totalNodeWeight := subnetwork.TotalNodeWeight()

	for _, node := range g.nodeProcessingOrder {
		if !nodeCanMove(node, clusterWeights, externalEdgeWeightPerCluster, totalNodeWeight, g.singletonClusters, adjustedResolution) {
			continue
		}

		g.resetForNode(node)

		clusterWeights[node] = 0
		externalEdgeWeightPerCluster[node] = 0

		subnetwork.ForEachNeighbor(node, func(neighbor CompactNodeID, weight float64) {
			neighborCluster := clustering.MustClusterAt(neighbor)
			if g.neighboringClusterEdgeWeight[neighborCluster] == 0 {
				g.neighboringClusters = append(g.neighboringClusters, neighborCluster)
			}
			g.neighboringClusterEdgeWeight[neighborCluster] += weight
		})

		chosen := bestClusterForNode(
			node,
			subnetwork.NodeWeight(node),
			g.neighboringClusters,
			g.neighboringClusterEdgeWeight,
			clusterWeights,
			externalEdgeWeightPerCluster,
			totalNodeWeight,
			g.summedQVIRecords,
			adjustedResolution,
			randomness,
			rng,
		)
		clusterWeights[chosen] += subnetwork.NodeWeight(node)

		subnetwork.ForEachNeighbor(node, func(neighbor CompactNodeID, weight float64) {
			if clustering.MustClusterAt(neighbor) == chosen {
				externalEdgeWeightPerCluster[chosen] -= weight
			} else {
				externalEdgeWeightPerCluster[chosen] += weight
			}
		})

		if chosen != node {
			_ = clustering.UpdateClusterAt(node, chosen)
			g.singletonClusters[chosen] = false
			improved = true
		}
	}

	if improved {
		clustering.RemoveEmptyClusters()
	}
	return clustering, nil
}

func (g *SubnetworkRefineGenerator) reset(length int, rng RandomSource) {
	g.nodeProcessingOrder = g.nodeProcessingOrder[:0]
	g.neighboringClusters = g.neighboringClusters[:0]
	g.neighboringClusterEdgeWeight = make([]float64, length)
	g.singletonClusters = make([]bool, length)
	for i := range g.singletonClusters {
		g.singletonClusters[i] = true
	}
	g.summedQVIRecords = g.summedQVIRecords[:0]

	for i := 0; i < length; i++ {
		g.nodeProcessingOrder = append(g.nodeProcessingOrder, i)
	}
	for i := 0; i < length; i++ {
		j := rng.IntN(length)
		g.nodeProcessingOrder[i], g.nodeProcessingOrder[j] = g.nodeProcessingOrder[j], g.nodeProcessingOrder[i]
	}
}

func (g *SubnetworkRefineGenerator) resetForNode(node CompactNodeID) {
	for _, cl := range g.neighboringClusters {
		g.neighboringClusterEdgeWeight[cl] = 0
	}
	g.neighboringClusters = g.neighboringClusters[:0]
	g.neighboringClusters = append(g.neighboringClusters, node)
	g.summedQVIRecords = g.summedQVIRecords[:0]
}

func nodeCanMove(
	node CompactNodeID,
	clusterWeights, externalEdgeWeightPerCluster []float64,
	totalNodeWeight float64,
	singletonClusters []bool,
	adjustedResolution float64,
) bool {
	threshold := clusterWeights[node] * (totalNodeWeight - clusterWeights[node]) * adjustedResolution
	return singletonClusters[node] && externalEdgeWeightPerCluster[node] >= threshold
}

func bestClusterForNode(
	node CompactNodeID,
	nodeWeight float64,
	neighboringClusters []int,
	neighboringClusterEdgeWeight []float64,
	clusterWeights, externalEdgeWeightPerCluster []float64,
	totalNodeWeight float64,
	summedQVIRecords []float64,
	adjustedResolution, randomness float64,
	rng RandomSource,
) CompactNodeID {
	bestCluster := node
	maxQVI := 0.0
	totalAdjustedQVI := 0.0

	for _, cluster := range neighboringClusters {
		externalEdgeWeight := externalEdgeWeightPerCluster[cluster]
		clusterWeight := clusterWeights[cluster]
		if externalEdgeWeight >= clusterWeight*(totalNodeWeight-clusterWeight)*adjustedResolution {
			qvi := qualityIncrement(neighboringClusterEdgeWeight[cluster], nodeWeight, clusterWeight, adjustedResolution)
			if qvi > maxQVI {
				bestCluster = cluster
				maxQVI = qvi
			}
			if qvi >= 0 {
				totalAdjustedQVI += approxExp(qvi / randomness)
			}
		}
		if !math.IsNaN(totalAdjustedQVI) {
			summedQVIRecords = append(summedQVIRecords, totalAdjustedQVI)
		}
		neighboringClusterEdgeWeight[cluster] = 0
	}

	if math.IsInf(totalAdjustedQVI, 0) || math.IsNaN(totalAdjustedQVI) {
		return bestCluster
	}

	target := totalAdjustedQVI * rng.Float64()
	location := sort.SearchFloat64s(summedQVIRecords, target)
	if location >= len(neighboringClusters) {
		return bestCluster
	}
	return neighboringClusters[location]
}

// approxExp approximates exp(x) via 8 successive squarings of
// (1 + x/256), clamping to 0 for x < -256 to avoid overflow for large
// negative inputs. This matches the sampling weight function used
// throughout subnetwork refinement.
func approxExp(x float64) float64 {
	if x < -256 {
		return 0
	}
	result := 1 + x/256
	for i := 0; i < 8; i++ {
		result *= result
	}
	return result
}
