package rtc

import "github.com/sentinelid/backend/internal/session"

// Inbound data-channel message types.
const (
	msgClick      = "click"
	msgType       = "type"
	msgScroll     = "scroll"
	msgNavigate   = "navigate"
	msgScreenshot = "screenshot"
)

// Message is one inbound data-channel command. Type discriminates which
// of the remaining fields are meaningful.
type Message struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Text   string `json:"text,omitempty"`
	DeltaY int    `json:"deltaY,omitempty"`
	URL    string `json:"url,omitempty"`
}

// ClickResponse reports the outcome of a click, echoing the client's
// correlation id so concurrent in-flight clicks can be matched up.
type ClickResponse struct {
	Type    string           `json:"type"`
	Success bool             `json:"success"`
	ClickID string           `json:"clickId"`
	Element *session.Element `json:"element,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Ack acknowledges a non-click command.
type Ack struct {
	Type  string `json:"type"`
	Event string `json:"event"`
}

// ScreenshotSaved reports the filename of a persisted screenshot.
type ScreenshotSaved struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

// ErrorReply reports a failure that has no more specific response shape.
type ErrorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func clickFailure(clickID, errMsg string) ClickResponse {
	return ClickResponse{Type: "click_response", Success: false, ClickID: clickID, Error: errMsg}
}

func clickSuccess(clickID string, el *session.Element) ClickResponse {
	return ClickResponse{Type: "click_response", Success: true, ClickID: clickID, Element: el}
}
