package streaming

import (
	"encoding/json"
	"errors"

	"txfeed/internal/domain"
)

type MessageType string

const (
	// MessageTypeTransaction carries one classified transaction.
	MessageTypeTransaction MessageType = "transaction"
	// MessageTypePage closes a published page and carries its next cursor.
	MessageTypePage MessageType = "page"
)

type Message struct {
	Type        MessageType                   `json:"type"`
	ChainID     uint64                        `json:"chain_id"`
	TraceID     string                        `json:"trace_id,omitempty"`
	Wallet      string                        `json:"wallet"`
	Position    int                           `json:"position"`
	Cursor      string                        `json:"cursor,omitempty"`
	Count       int                           `json:"count,omitempty"`
	Transaction *domain.ClassifiedTransaction `json:"transaction,omitempty"`
}

func Encode(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if err := validate(msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func validate(msg Message) error {
	switch msg.Type {
	case "":
		return errors.New("message type is required")
	case MessageTypeTransaction:
		if msg.Transaction == nil {
			return errors.New("transaction message has no transaction")
		}
	case MessageTypePage:
	default:
		return errors.New("unknown message type")
	}
	if msg.ChainID == 0 {
		return errors.New("chain_id is required")
	}
	if msg.Wallet == "" {
		return errors.New("wallet is required")
	}
	return nil
}
