package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldRuleID      = "rule_id"
	FieldEntryID     = "entry_id"
	FieldKind        = "kind"
	FieldFrequency   = "frequency"
	FieldDueDate     = "due_date"
	FieldRunDate     = "run_date"
	FieldAmountCents = "amount_cents"
	FieldProcessed   = "processed"
	FieldDeactivated = "deactivated"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentScheduler = "scheduler"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpRun      = "run"
	OpFetch    = "fetch"
	OpAppend   = "append"
	OpAdvance  = "advance"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
