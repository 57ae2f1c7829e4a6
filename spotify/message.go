package spotify

import (
	"encoding/json"
)

// messageTypeLinkSuccess is the discriminant the backend's completion page
// sends when the provider authorization finished.
const messageTypeLinkSuccess = "spotify-auth-success"

// LinkSuccess is emitted on the events bus when a valid completion message
// arrives. It carries the fresh bearer token issued alongside the link.
type LinkSuccess struct {
	Token string
}

type completionPayload struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// parseCompletionMessage decodes a completion payload. Only payloads with the
// exact link-success discriminant and a non-empty token are accepted; anything
// else is ignored without error.
func parseCompletionMessage(raw []byte) (LinkSuccess, bool) {
	var payload completionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return LinkSuccess{}, false
	}
	if payload.Type != messageTypeLinkSuccess || payload.Token == "" {
		return LinkSuccess{}, false
	}
	return LinkSuccess{Token: payload.Token}, true
}
