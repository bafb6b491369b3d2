package types

// ErrorEnvelope is the body of every failed response. Error carries the raw
// error text and is only filled outside production.
type ErrorEnvelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SuccessEnvelope flattens the payload next to ok and message.
func SuccessEnvelope(message string, payload map[string]any) map[string]any {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["ok"] = true
	body["message"] = message
	return body
}
