// Package sap holds the domain model for BAPI-style remote calls: structured
// function results with severity-tagged RETURN messages, transaction records
// for the audit trail, and the connector contract implemented by the gateway.
package sap

// Severity is the single-character message type carried in a RETURN entry
type Severity string

const (
	SeverityError   Severity = "E"
	SeverityAbort   Severity = "A"
	SeverityWarning Severity = "W"
	SeverityInfo    Severity = "I"
	SeveritySuccess Severity = "S"
)

// ReturnMessage is one entry of the RETURN table a remote function hands back
type ReturnMessage struct {
	Type    Severity `json:"TYPE"`
	ID      string   `json:"ID,omitempty"`
	Number  string   `json:"NUMBER,omitempty"`
	Message string   `json:"MESSAGE"`
}

// IsError returns true for error and abort severities
func (m ReturnMessage) IsError() bool {
	return m.Type == SeverityError || m.Type == SeverityAbort
}

// ParsedMessages is the RETURN table grouped by severity
type ParsedMessages struct {
	Errors   []string
	Warnings []string
	Info     []string
}

// HasErrors returns true if any error or abort severity message was present
func (p ParsedMessages) HasErrors() bool {
	return len(p.Errors) > 0
}

// ParseReturnMessages groups a RETURN table by severity. Error and abort map
// to Errors, warning to Warnings, info and success to Info. Unknown severities
// are ignored.
func ParseReturnMessages(messages []ReturnMessage) ParsedMessages {
	var parsed ParsedMessages
	for _, msg := range messages {
		switch msg.Type {
		case SeverityError, SeverityAbort:
			parsed.Errors = append(parsed.Errors, msg.Message)
		case SeverityWarning:
			parsed.Warnings = append(parsed.Warnings, msg.Message)
		case SeverityInfo, SeveritySuccess:
			parsed.Info = append(parsed.Info, msg.Message)
		}
	}
	return parsed
}
