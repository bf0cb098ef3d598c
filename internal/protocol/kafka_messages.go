package protocol

import (
	"encoding/json"
	"time"
)

// CalculationMessage is the internal message format for the calculations
// topic. The request id is assigned at the ingress and carried through the
// pipeline for log correlation.
type CalculationMessage struct {
	RequestID  string             `json:"request_id"`
	ReceivedAt time.Time          `json:"received_at"`
	Payload    CalculationPayload `json:"payload"`
}

// EncodeCalculationMessage encodes a CalculationMessage to JSON.
func EncodeCalculationMessage(msg *CalculationMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeCalculationMessage decodes JSON to a CalculationMessage.
func DecodeCalculationMessage(data []byte) (*CalculationMessage, error) {
	var msg CalculationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
