package sap

import (
	"encoding/json"
)

// Params holds the named parameters of a remote function call. Values are
// either scalars, nested maps, or slices of maps (table parameters).
type Params map[string]any

// FunctionResult is the structured result of a remote function call
type FunctionResult map[string]any

// String returns the named export parameter as a string, or "" if absent
func (r FunctionResult) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Table returns the named table parameter as a slice of row maps.
// A single-row object value is wrapped into a one-element slice, since
// gateways collapse single-entry tables into bare objects.
func (r FunctionResult) Table(key string) []map[string]any {
	switch v := r[key].(type) {
	case []map[string]any:
		return v
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, entry := range v {
			if row, ok := entry.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows
	case map[string]any:
		return []map[string]any{v}
	}
	return nil
}

// Return extracts and decodes the RETURN messages from the result. Both a
// single RETURN structure and a RETURN table are accepted.
func (r FunctionResult) Return() []ReturnMessage {
	rows := r.Table("RETURN")
	if len(rows) == 0 {
		return nil
	}
	messages := make([]ReturnMessage, 0, len(rows))
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			continue
		}
		var msg ReturnMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// ParsedReturn parses the RETURN messages grouped by severity
func (r FunctionResult) ParsedReturn() ParsedMessages {
	return ParseReturnMessages(r.Return())
}
