package app

// DomainError is a business-rule failure that already knows how it should be
// reported over HTTP. Handlers unwrap it in mapError and render the envelope
// {error: {code, message, details}} with the carried status.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

// domainError keeps construction terse at the service layer's many
// validation sites.
func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
