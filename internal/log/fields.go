package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldUserID        = "user_id"
	FieldPeriod        = "period"
	FieldStartPeriod   = "start_period"
	FieldEndPeriod     = "end_period"
	FieldTransactionID = "transaction_id"
	FieldChannel       = "channel"
	FieldAmount        = "amount"
)

// Components defines standard component names
const (
	ComponentApp     = "saldo"
	ComponentHTTP    = "http"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
)
