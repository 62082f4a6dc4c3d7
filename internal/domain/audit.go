package domain

// Audit event kinds.
const (
	AuditAdmission  = "ADMISSION"
	AuditSignal     = "SIGNAL_ISSUED"
	AuditExitCheck  = "EXIT_CHECK"
	AuditExitAction = "EXIT_ACTION"
	AuditRateLimit  = "RATE_LIMITED"
)

// AuditRecord is an append-only trace of a pipeline decision. Every
// admission verdict and exit evaluation writes one, including holds and
// rejections, so decisions stay explainable after the fact.
type AuditRecord struct {
	Kind       string  // Audit* constant
	UserID     string
	Mint       string
	Verdict    string  // APPROVED / REJECTED / HOLD / EXIT / ...
	Reasons    []string
	PnlPercent float64 // exit checks only
	Timestamp  int64   // Unix milliseconds
}
