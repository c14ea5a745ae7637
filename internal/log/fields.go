package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldUserID      = "user_id"
	FieldChatID      = "chat_id"
	FieldMessageID   = "message_id"
	FieldUpdateID    = "update_id"
	FieldCommand     = "command"
	FieldIntent      = "intent"
	FieldOutcome     = "outcome"
	FieldRejection   = "rejection"
	FieldWallet      = "wallet"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldBankCents   = "bank_cents"
	FieldCashCents   = "cash_cents"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldEventID     = "event_id"
	FieldEventType   = "event_type"
	FieldTraceID     = "trace_id"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentBot        = "bot"
	ComponentClassifier = "classifier"
	ComponentResolver   = "resolver"
	ComponentStats      = "stats"
	ComponentDedup      = "dedup"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpClassify = "classify"
	OpResolve  = "resolve"
	OpStats    = "stats"
	OpReply    = "reply"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpAppend   = "append"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation     = "validation_error"
	ErrorTypeClassification = "classification_error"
	ErrorTypeConfiguration  = "configuration_error"
	ErrorTypeDatabase       = "database_error"
	ErrorTypeNetwork        = "network_error"
	ErrorTypeTimeout        = "timeout_error"
	ErrorTypeInternal       = "internal_error"
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

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMessage adds the chat coordinates of an inbound message.
func (f LogFields) WithMessage(userID string, chatID int64, messageID int) LogFields {
	f[FieldUserID] = userID
	f[FieldChatID] = chatID
	f[FieldMessageID] = messageID
	return f
}

// WithIntent adds the classified intent and its money fields.
func (f LogFields) WithIntent(kind string, wallet string, amountCents *int64, category string) LogFields {
	f[FieldIntent] = kind
	if wallet != "" {
		f[FieldWallet] = wallet
	}
	if amountCents != nil {
		f[FieldAmountCents] = *amountCents
	}
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// WithBalance adds both wallet amounts.
func (f LogFields) WithBalance(bankCents, cashCents int64) LogFields {
	f[FieldBankCents] = bankCents
	f[FieldCashCents] = cashCents
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
