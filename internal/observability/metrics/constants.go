package metrics

// Operation label values.
const (
	OpStream    = "stream"
	OpImport    = "import"
	OpCount     = "count"
	OpMigrate   = "migrate"
	OpFilter    = "filter"
	OpAggregate = "aggregate"
	OpReport    = "report"
	OpWrite     = "write"
	OpPoints    = "points"
	OpRemarks   = "remarks"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Bin outcome label values.
const (
	OutcomeEmitted    = "emitted"
	OutcomeSuppressed = "suppressed"
)

// Cache result label values.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the first bucket of duration histograms.
	BucketStart1ms = 0.001
	// BucketStart100B starts row-count histograms.
	BucketStart100B = 100.0
	// BucketFactor2 is the exponential growth factor.
	BucketFactor2 = 2
	// BucketCount15 spans 1ms to ~16s.
	BucketCount15 = 15
	// BucketCount20 spans 100 to ~50M rows.
	BucketCount20 = 20
)
