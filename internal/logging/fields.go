package logging

// Field names for structured logging
const (
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldEvent     = "event"
	FieldPhase     = "phase"
	FieldAuth      = "auth"
	FieldProvider  = "provider"
	FieldHost      = "host"
	FieldAttempt   = "attempt"
	FieldView      = "view"
	FieldAddr      = "addr"
)

// Component names
const (
	ComponentApp      = "app"
	ComponentAPI      = "api"
	ComponentIdentity = "identity"
	ComponentSession  = "session"
	ComponentCallback = "callback"
	ComponentStore    = "tokenstore"
	ComponentTUI      = "tui"
)
