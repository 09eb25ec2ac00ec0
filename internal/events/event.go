package events

import "encoding/json"

// StatusChanged announces a document status transition.
type StatusChanged struct {
	DocumentID         string `json:"documentId"`
	OldStatus          string `json:"oldStatus"`
	NewStatus          string `json:"newStatus"`
	ProviderName       string `json:"providerName,omitempty"`
	ProviderDocumentID string `json:"providerDocumentId,omitempty"`
	OccurredAt         string `json:"occurredAt"`
	Version            int    `json:"version"`
}

// EncodeStatusChanged returns the JSON representation of an event.
func EncodeStatusChanged(event StatusChanged) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeStatusChanged parses a JSON payload into a StatusChanged event.
func DecodeStatusChanged(payload []byte) (StatusChanged, error) {
	var event StatusChanged
	if err := json.Unmarshal(payload, &event); err != nil {
		return StatusChanged{}, err
	}
	return event, nil
}
