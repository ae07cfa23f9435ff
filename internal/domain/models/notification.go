package models

// Notification is a text pushed over WhatsApp. An empty To means the farm
// manager configured for the deployment.
type Notification struct {
	To         string `json:"to,omitempty"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}
