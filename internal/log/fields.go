package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldChatID      = "chat_id"
	FieldFlow        = "flow"
	FieldState       = "state"
	FieldRecordID    = "record_id"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldEventType   = "event_type"
	FieldEventID     = "event_id"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentStorage      = "storage"
	ComponentStats        = "stats"
	ComponentConversation = "conversation"
	ComponentDispatch     = "dispatch"
	ComponentTelegram     = "telegram"
	ComponentDigest       = "digest"
	ComponentCoffee       = "coffee"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentSheets       = "sheets"
	ComponentCache        = "cache"
	ComponentRateLimit    = "rate_limit"
	ComponentBackend      = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpReplace  = "replace"
	OpDelete   = "delete"
	OpList     = "list"
	OpUpsert   = "upsert"
	OpStats    = "stats"
	OpAppend   = "append"
	OpPublish  = "publish"
	OpRender   = "render"
	OpSend     = "send"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUser adds the chat identity of the sender.
func (f LogFields) WithUser(userID, chatID int64) LogFields {
	f[FieldUserID] = userID
	if chatID != 0 {
		f[FieldChatID] = chatID
	}
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(recordID, amountCents int64, category, date string) LogFields {
	if recordID != 0 {
		f[FieldRecordID] = recordID
	}
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	f[FieldDate] = date
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
