package adapter

// Capabilities declares which advanced features the backing store
// supports. It is metadata for callers to branch on, not enforced here;
// modules that exceed it fail with NOT_IMPLEMENTED instead of attempting
// unsupported behavior.
type Capabilities struct {
	SupportsTransactions   bool `json:"supportsTransactions"`
	SupportsIndexing       bool `json:"supportsIndexing"`
	SupportsFullTextSearch bool `json:"supportsFullTextSearch"`
	SupportsAggregation    bool `json:"supportsAggregation"`
	SupportsStreaming      bool `json:"supportsStreaming"`
	SupportsPartitioning   bool `json:"supportsPartitioning"`
	MaxBatchSize           int  `json:"maxBatchSize"`
	MaxQueryComplexity     int  `json:"maxQueryComplexity"`
}

// mysqlCapabilities is the static descriptor for the MySQL backing store.
var mysqlCapabilities = Capabilities{
	SupportsTransactions:   true,
	SupportsIndexing:       true,
	SupportsFullTextSearch: false,
	SupportsAggregation:    false,
	SupportsStreaming:      false,
	SupportsPartitioning:   false,
	MaxBatchSize:           100,
	MaxQueryComplexity:     10,
}
