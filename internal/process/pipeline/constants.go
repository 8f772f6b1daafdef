package pipeline

// Verdicts of the ingestion chain.
const (
	VerdictFiltered Verdict = "filtered"
	VerdictUnscored Verdict = "unscored"
	VerdictRejected Verdict = "rejected"
	VerdictAccepted Verdict = "accepted"
)

// Rejection reasons past the filter chain.
const (
	ReasonNoQuota         = "no_quota"
	ReasonNoScore         = "no_score"
	ReasonLowScore        = "low_score"
	ReasonNoRewrite       = "no_rewrite"
	ReasonNoAltScore      = "no_alt_score"
	ReasonLowAltScore     = "low_alt_score"
	ReasonEmbeddingFailed = "embedding_failed"
	ReasonPassed          = "passed"
)

// Pass names.
const (
	PassIngest     Pass = "ingest"
	PassSimilarity Pass = "similarity"
	PassMetrics    Pass = "metrics"
)

// Log field constants
const (
	LogFieldRunID   = "run_id"
	LogFieldChannel = "channel"
	LogFieldItemID  = "item_id"
	LogFieldPass    = "pass"
	LogFieldVerdict = "verdict"
	LogFieldReason  = "reason"
	LogFieldCount   = "count"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)
