package types

import "encoding/json"

// Response is the envelope every item store endpoint returns.
// Data is omitted on failure; Message carries a human-readable reason on
// failure and a confirmation on delete.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Standard envelope messages.
const (
	MsgItemNotFound = "Item not found"
	MsgTextRequired = "Please provide item text"
	MsgItemDeleted  = "Item deleted successfully"
	MsgServerError  = "Server error"
	MsgAPIRoot      = "Grocery List API"
)
