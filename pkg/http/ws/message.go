package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeRequestState = "request_state"
	TypeRevealHint   = "reveal_hint"
	TypeSubmitAnswer = "submit_answer"
	TypeAskAssistant = "ask_assistant"
	TypeReset        = "reset"
	TypePing         = "ping"

	// Server -> Client
	TypeState          = "state"
	TypeGradingDelta   = "grading_delta"
	TypeGradingResult  = "grading_result"
	TypeAssistantDelta = "assistant_delta"
	TypeAssistantReply = "assistant_reply"
	TypeGameComplete   = "game_complete"
	TypeError          = "error"
	TypePong           = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload into a typed envelope.
func NewMessage(msgType, requestID string, payload any) (Message, error) {
	msg := Message{Type: msgType, RequestID: requestID}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	Answer string `json:"answer"`
}

type AskAssistantPayload struct {
	Query string `json:"query"`
}

// Server Messages (outgoing)

type DeltaPayload struct {
	Delta string `json:"delta"`
}

type AssistantReplyPayload struct {
	Reply string `json:"reply"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
