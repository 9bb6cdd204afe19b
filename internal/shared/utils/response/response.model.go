// Package response defines the JSON envelope shared by every trekka endpoint,
// from vehicle browsing to webhook acknowledgements.
package response

// StandardApiResponse is the envelope for all fleet, booking, and payment
// responses. Controllers never write ad-hoc JSON shapes; even the gateway
// webhook acknowledgements go through it.
type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}
