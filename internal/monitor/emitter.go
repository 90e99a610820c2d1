package monitor

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Message types on the monitor's outbound channel.
const (
	MessageTypeOrder = "order"
	MessageTypeFatal = "fatal"
)

// Message is the typed envelope a monitor process emits, one JSON object per
// line. The supervisor parses these instead of scraping free-form output.
type Message struct {
	Type   string             `json:"type"`
	Ticker string             `json:"ticker"`
	Order  *types.OrderRecord `json:"order,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Emitter publishes monitor messages to whoever supervises the process.
type Emitter interface {
	Emit(msg Message) error
}

// JSONLEmitter writes one JSON line per message. Safe for concurrent use.
type JSONLEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLEmitter creates an emitter writing to w, typically stdout.
func NewJSONLEmitter(w io.Writer) *JSONLEmitter {
	return &JSONLEmitter{w: w}
}

// Emit implements Emitter.
func (e *JSONLEmitter) Emit(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to encode monitor message", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to write monitor message", err)
	}

	return nil
}

// ChannelEmitter delivers messages on a channel, for in-process supervision
// and tests.
type ChannelEmitter struct {
	C chan Message
}

// NewChannelEmitter creates a buffered channel emitter.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	return &ChannelEmitter{C: make(chan Message, buffer)}
}

// Emit implements Emitter. Emit drops the message when the channel is full
// rather than blocking the monitor loop.
func (e *ChannelEmitter) Emit(msg Message) error {
	select {
	case e.C <- msg:
		return nil
	default:
		return errors.New(errors.ErrCodeUnknown, "monitor message channel full")
	}
}
