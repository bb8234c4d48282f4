package community

import "errors"

// These values are returned by the Leiden engine's algorithmic core.
// They are sentinel errors: callers compare with errors.Is rather than
// type-asserting, and service-layer code wraps them with fmt.Errorf("%w")
// when adding request-scoped context.
var (
	// ErrParameterRange is returned when a configuration value (resolution,
	// randomness, max cluster size) falls outside its valid range, or when
	// no random source is supplied.
	ErrParameterRange = errors.New("community: parameter out of range")

	// ErrEmptyNetwork is returned when Detect or Hierarchical is invoked
	// against a graph with zero nodes.
	ErrEmptyNetwork = errors.New("community: network has no nodes")

	// ErrClusterIndexing is returned when a node or cluster id used to
	// index into a Clustering falls outside its bounds.
	ErrClusterIndexing = errors.New("community: cluster index out of bounds")

	// ErrInternalIndexing names an out-of-range CompactGraph node id. The
	// CompactGraph lookups index their slices directly and do not return
	// it: a node id outside [0, NumNodes) panics there instead.
	ErrInternalIndexing = errors.New("community: internal node index out of bounds")

	// ErrUnsafeInducement is returned when aggregation is asked to induce
	// a graph from a clustering with no clusters, with a cluster id outside
	// [0, nextClusterID), or with an empty cluster id below nextClusterID,
	// any of which would silently corrupt later induced levels.
	ErrUnsafeInducement = errors.New("community: unsafe graph inducement")

	// ErrQueue is returned when a caller pops from an empty work queue.
	ErrQueue = errors.New("community: work queue is empty")

	// ErrInvalidCommunityMapping is returned when a caller-supplied
	// clustering covers a different number of nodes than the graph, or
	// assigns a node to a negative cluster id, to one at or beyond
	// nextClusterID, or to one at or beyond the graph's node count.
	ErrInvalidCommunityMapping = errors.New("community: invalid community mapping")

	// ErrEdgeFormat names an edge that cannot be parsed into (source,
	// target, weight). This package has no edge parser, and no function
	// in it returns this value.
	ErrEdgeFormat = errors.New("community: malformed edge")
)
