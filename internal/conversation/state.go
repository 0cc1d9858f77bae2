// Package conversation holds the per-session chat state: messages, the inbox
// snapshot the assistant is working on, the activity log and busy flags.
package conversation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Role identifies who authored a message
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is one chat bubble. IDs increase monotonically within a session.
type Message struct {
	ID   int    `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// EmailSummary is an inbox entry as shown to the user
type EmailSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId,omitempty"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	AIReply  string `json:"aiReply,omitempty"`
}

// Operation names a class of outstanding work tracked by a busy flag
type Operation int

const (
	OpLoadingEmails Operation = iota
	OpDeleting
	OpSendingReply
	OpRefiningReply
)

// Busy holds one flag per operation class
type Busy struct {
	LoadingEmails bool `json:"loadingEmails"`
	Deleting      bool `json:"deleting"`
	SendingReply  bool `json:"sendingReply"`
	RefiningReply bool `json:"refiningReply"`
}

// Blocking reports whether new commands should be held back. Only fetches and
// deletes block the input.
func (b Busy) Blocking() bool { return b.LoadingEmails || b.Deleting }

// Any reports whether any operation is outstanding
func (b Busy) Any() bool {
	return b.LoadingEmails || b.Deleting || b.SendingReply || b.RefiningReply
}

var (
	// ErrUnknownMessage is returned when resolving an id that is not a pending placeholder.
	ErrUnknownMessage = errors.New("no pending placeholder with that id")
)

// CommandHelp lists example commands.
const CommandHelp = "Try commands like: \n- \"read my latest emails\" \n- \"draft a reply to a client\" \n- \"delete spam emails\""

const initialActivity = "Dashboard initialized. Waiting for your first command…"

// Snapshot is an immutable copy of the state
type Snapshot struct {
	Messages   []Message      `json:"messages"`
	Activity   []string       `json:"activity"`
	Emails     []EmailSummary `json:"emails"`
	SelectedID string         `json:"selectedId,omitempty"`
	Busy       Busy           `json:"busy"`
	// Revision grows with every mutation; a higher value is a newer state
	Revision uint64 `json:"revision"`
}

// Selected returns the selected email, if any
func (s Snapshot) Selected() (EmailSummary, bool) {
	return findEmail(s.Emails, s.SelectedID)
}

// State is the mutable conversation owned by one session. All methods are
// safe for concurrent use; observers run after the lock is released.
type State struct {
	mu        sync.RWMutex
	nextID    int
	messages  []Message
	pending   map[int]bool
	activity  []string
	emails    []EmailSummary
	selected  string
	busy      Busy
	rev       uint64
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewState creates a session seeded with the greeting and the command help.
// userLabel is how the assistant addresses the user.
func NewState(userLabel string) *State {
	if strings.TrimSpace(userLabel) == "" {
		userLabel = "there"
	}
	s := &State{
		pending:   make(map[int]bool),
		observers: make(map[int]func(Snapshot)),
	}
	s.appendLocked(RoleAssistant, fmt.Sprintf("Hi %s, I'm your AI email assistant. 👋", userLabel))
	s.appendLocked(RoleAssistant, "You can ask me to: \n• Read recent emails \n• Draft and send replies \n• Delete messages")
	s.appendLocked(RoleAssistant, CommandHelp)
	s.activity = []string{initialActivity}
	return s
}

func (s *State) appendLocked(role Role, text string) int {
	s.rev++
	s.nextID++
	s.messages = append(s.messages, Message{ID: s.nextID, Role: role, Text: text})
	return s.nextID
}

// BeginExchange appends the user message and an assistant placeholder as one
// step and returns the placeholder id.
func (s *State) BeginExchange(userText, placeholder string) int {
	s.mu.Lock()
	s.appendLocked(RoleUser, userText)
	id := s.appendLocked(RoleAssistant, placeholder)
	s.pending[id] = true
	s.mu.Unlock()
	s.notify()
	return id
}

// Resolve replaces a placeholder's text. Each placeholder can be resolved once.
func (s *State) Resolve(id int, text string) error {
	s.mu.Lock()
	if !s.pending[id] {
		s.mu.Unlock()
		return ErrUnknownMessage
	}
	delete(s.pending, id)
	s.rev++
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Text = text
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Say appends a standalone assistant message
func (s *State) Say(text string) int {
	s.mu.Lock()
	id := s.appendLocked(RoleAssistant, text)
	s.mu.Unlock()
	s.notify()
	return id
}

// Log prepends an activity entry
func (s *State) Log(entry string) {
	s.mu.Lock()
	s.activity = append([]string{entry}, s.activity...)
	s.rev++
	s.mu.Unlock()
	s.notify()
}

// Logf prepends a formatted activity entry
func (s *State) Logf(format string, args ...interface{}) {
	s.Log(fmt.Sprintf(format, args...))
}

// SetEmails replaces the held list and selects the first entry
func (s *State) SetEmails(emails []EmailSummary) {
	s.mu.Lock()
	s.emails = append([]EmailSummary(nil), emails...)
	s.rev++
	s.selected = ""
	if len(s.emails) > 0 {
		s.selected = s.emails[0].ID
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveEmail drops an email by id and clears the selection if it pointed there
func (s *State) RemoveEmail(id string) bool {
	s.mu.Lock()
	removed := false
	kept := s.emails[:0:0]
	for _, e := range s.emails {
		if e.ID == id {
			removed = true
			s.rev++
			continue
		}
		kept = append(kept, e)
	}
	s.emails = kept
	if s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
	return removed
}

// Emails returns a copy of the held list
func (s *State) Emails() []EmailSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]EmailSummary(nil), s.emails...)
}

// Select marks an email as selected. It returns false for unknown ids.
func (s *State) Select(id string) bool {
	s.mu.Lock()
	if _, ok := findEmail(s.emails, id); !ok {
		s.mu.Unlock()
		return false
	}
	s.selected = id
	s.rev++
	s.mu.Unlock()
	s.notify()
	return true
}

// Selected returns the selected email, if any
func (s *State) Selected() (EmailSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findEmail(s.emails, s.selected)
}

// SetReply replaces the suggested reply of an email
func (s *State) SetReply(id, reply string) bool {
	s.mu.Lock()
	found := false
	for i := range s.emails {
		if s.emails[i].ID == id {
			s.emails[i].AIReply = reply
			s.rev++
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
	return found
}

// SetBusy toggles the flag for op
func (s *State) SetBusy(op Operation, v bool) {
	s.mu.Lock()
	switch op {
	case OpLoadingEmails:
		s.busy.LoadingEmails = v
	case OpDeleting:
		s.busy.Deleting = v
	case OpSendingReply:
		s.busy.SendingReply = v
	case OpRefiningReply:
		s.busy.RefiningReply = v
	}
	s.rev++
	s.mu.Unlock()
	s.notify()
}

// Busy returns the current busy flags
func (s *State) Busy() Busy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Snapshot returns a deep copy of the state
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Messages:   append([]Message(nil), s.messages...),
		Activity:   append([]string(nil), s.activity...),
		Emails:     append([]EmailSummary(nil), s.emails...),
		SelectedID: s.selected,
		Busy:       s.busy,
		Revision:   s.rev,
	}
}

// Subscribe registers fn to receive a snapshot after every mutation. The
// returned function unregisters it.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *State) notify() {
	s.mu.RLock()
	if len(s.observers) == 0 {
		s.mu.RUnlock()
		return
	}
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func findEmail(emails []EmailSummary, id string) (EmailSummary, bool) {
	if id == "" {
		return EmailSummary{}, false
	}
	for _, e := range emails {
		if e.ID == id {
			return e, true
		}
	}
	return EmailSummary{}, false
}
