// Package toast delivers short user-facing notifications from the stores.
//
// Stores report every outcome through a Sink and never wait on it: a sink
// has no return value and must not block. The presentation layer decides how
// toasts are rendered (the CLI prints them to stderr).
//
//	sink := toast.NewWriter(os.Stderr)
//	sink.Show(toast.Success("Added Cotton T-Shirt to cart"))
package toast

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Level is the toast notification type.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Message is one notification.
type Message struct {
	Level Level  `json:"level"`
	Title string `json:"title,omitempty"`
	Text  string `json:"message"`
}

// Success builds a success toast.
func Success(text string) Message {
	return Message{Level: LevelSuccess, Title: "Success", Text: text}
}

// Error builds an error toast.
func Error(text string) Message {
	return Message{Level: LevelError, Title: "Error", Text: text}
}

// Warning builds a warning toast.
func Warning(text string) Message {
	return Message{Level: LevelWarning, Text: text}
}

// Info builds an info toast.
func Info(text string) Message {
	return Message{Level: LevelInfo, Text: text}
}

// Sink receives toasts. Implementations must be safe for concurrent use.
type Sink interface {
	Show(Message)
}

// Func adapts a function to a Sink.
type Func func(Message)

// Show implements Sink.
func (f Func) Show(m Message) { f(m) }

// Discard drops every toast.
var Discard Sink = Func(func(Message) {})

// writerSink prints one line per toast.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a sink that prints "[level] text" lines to w.
func NewWriter(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) Show(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%s] %s\n", m.Level, m.Text)
}

// NewLogger returns a sink that records toasts as Debug log entries. The
// failure behind an error toast is logged separately by the store.
func NewLogger(logger *slog.Logger) Sink {
	return Func(func(m Message) {
		logger.Debug("toast", "level", string(m.Level), "message", m.Text)
	})
}

// Multi fans a toast out to several sinks.
func Multi(sinks ...Sink) Sink {
	return Func(func(m Message) {
		for _, s := range sinks {
			s.Show(m)
		}
	})
}

// Recorder keeps every toast it receives. Used in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Show implements Sink.
func (r *Recorder) Show(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of the recorded toasts.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent toast, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset forgets recorded toasts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
