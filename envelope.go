package authcore

// Envelope is the JSON shape of every response.
type Envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Code    string       `json:"code,omitempty"`
	Field   string       `json:"field,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// OK builds a success envelope.
func OK(data any, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// ErrorEnvelope maps any error to its HTTP status and envelope. This is the
// only place errors are translated for clients; causes are never exposed.
func ErrorEnvelope(err error) (int, Envelope) {
	ae := AsAuthError(err)
	return ae.Status, Envelope{
		Success: false,
		Code:    ae.Code,
		Message: ae.Message,
		Field:   ae.Field,
		Errors:  ae.Errors,
	}
}
