package api

// HubAnnouncer forwards engine accessibility events to viewers over the
// websocket hub. Status events map to a polite live region on the client,
// alerts to an assertive one.
type HubAnnouncer struct {
	hub *WebSocketHub
}

// NewHubAnnouncer creates an announcer backed by the hub.
func NewHubAnnouncer(hub *WebSocketHub) *HubAnnouncer {
	return &HubAnnouncer{hub: hub}
}

// Status broadcasts a polite announcement.
func (a *HubAnnouncer) Status(msg string) {
	a.hub.Broadcast("a11y:status", map[string]string{"message": msg})
}

// Alert broadcasts an assertive announcement.
func (a *HubAnnouncer) Alert(msg string) {
	a.hub.Broadcast("a11y:alert", map[string]string{"message": msg})
}
