package replication

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageKind tags server-to-client messages
type MessageKind uint8

const (
	MsgWelcome MessageKind = iota + 1
	MsgSnapshot
)

func (k MessageKind) String() string {
	switch k {
	case MsgWelcome:
		return "welcome"
	case MsgSnapshot:
		return "snapshot"
	}
	return fmt.Sprintf("MessageKind(%d)", uint8(k))
}

// ServerMessage is the binary frame sent to websocket clients
type ServerMessage struct {
	Kind     MessageKind   `msgpack:"k"`
	ClientID uint64        `msgpack:"c,omitempty"`
	Snapshot *TickSnapshot `msgpack:"s,omitempty"`
}

// EncodeSnapshot frames a snapshot as a ServerMessage
func EncodeSnapshot(s TickSnapshot) ([]byte, error) {
	return msgpack.Marshal(&ServerMessage{Kind: MsgSnapshot, Snapshot: &s})
}

// DecodeSnapshot reads a frame produced by EncodeSnapshot
func DecodeSnapshot(data []byte) (TickSnapshot, error) {
	msg, err := DecodeServerMessage(data)
	if err != nil {
		return TickSnapshot{}, err
	}
	if msg.Kind != MsgSnapshot || msg.Snapshot == nil {
		return TickSnapshot{}, fmt.Errorf("%w: expected snapshot, got %s", ErrBadMessage, msg.Kind)
	}
	return *msg.Snapshot, nil
}

// EncodeWelcome frames the client id assigned on connect
func EncodeWelcome(clientID uint64) ([]byte, error) {
	return msgpack.Marshal(&ServerMessage{Kind: MsgWelcome, ClientID: clientID})
}

// DecodeServerMessage decodes any server frame
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return msg, nil
}

// EncodeInput frames client input
func EncodeInput(in PlayerInput) ([]byte, error) {
	return msgpack.Marshal(&in)
}

// DecodeInput reads a client input frame
func DecodeInput(data []byte) (PlayerInput, error) {
	var in PlayerInput
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return PlayerInput{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return in, nil
}
