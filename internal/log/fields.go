package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldSuccess     = "success"
	FieldDuration    = "duration_ms"
	FieldMerchant    = "merchant"
	FieldMerchantKey = "merchant_key"
	FieldDisplayName = "display_name"
	FieldCategory    = "category"
	FieldBank        = "bank"
	FieldSender      = "sender"
	FieldAmountCents = "amount_cents"
	FieldConfidence  = "confidence"
	FieldSMSID       = "sms_id"
	FieldProcessed   = "processed"
	FieldTotal       = "total"
	FieldRejected    = "rejected"
	FieldReason      = "reason"
	FieldKeys        = "keys"
	FieldStore       = "store"
	FieldExchange    = "exchange"
	FieldQueue       = "queue"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentParser   = "parser"
	ComponentIngest   = "ingest"
	ComponentResolver = "resolver"
	ComponentCategory = "category"
	ComponentGrouping = "grouping"
	ComponentStorage  = "storage"
	ComponentKVStore  = "kvstore"
	ComponentEvents   = "events"
	ComponentWorker   = "worker"
	ComponentExport   = "export"
	ComponentBudget   = "budget"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpParse    = "parse"
	OpIngest   = "ingest"
	OpResolve  = "resolve"
	OpSetAlias = "set_alias"
	OpRemove   = "remove"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpGroup    = "group"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
