package ui

import (
	"sync"

	"github.com/go-logr/logr"
)

// Level is the severity of a user-facing message.
type Level uint8

const (
	// LevelInfo is a neutral message.
	LevelInfo Level = iota
	// LevelSuccess confirms a completed action.
	LevelSuccess
	// LevelWarning is an advisory that does not stop the operator.
	LevelWarning
	// LevelError reports a failed action.
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a message to the operator.
type Notifier interface {
	Notify(level Level, text string)
}

// Navigator moves the console to path.
type Navigator interface {
	Navigate(path string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(level Level, text string)

// Notify calls f.
func (f NotifierFunc) Notify(level Level, text string) { f(level, text) }

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(path string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Discard drops every message and navigation.
type Discard struct{}

func (Discard) Notify(Level, string) {}

func (Discard) Navigate(string) {}

// LogNotifier writes messages to a logr sink. Errors are logged through
// logr's Error path so they survive verbosity filtering.
type LogNotifier struct {
	Log logr.Logger
}

func (n LogNotifier) Notify(level Level, text string) {
	if level == LevelError {
		n.Log.Error(nil, text)
		return
	}
	n.Log.Info(text, "level", level.String())
}

// Message is one recorded notification.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification and navigation in order. It is safe for
// concurrent use and is meant for tests and headless consoles.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	paths    []string
}

func (r *Recorder) Notify(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Paths returns a copy of the recorded navigations.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.paths))
	copy(out, r.paths)
	return out
}

// Count returns how many messages were recorded at level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Last returns the most recent message, or false when none was recorded.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
