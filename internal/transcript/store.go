// Package transcript owns the ordered message list of one chat session.
//
// The store is pure in-memory state plus a single mutation observer. The
// observer is invoked synchronously after each mutation, outside the lock
// and in mutation order; it must not block. Persistence defers the actual
// disk write onto its own queue (see internal/persist).
package transcript

import "sync"

// DefaultSystemPrompt seeds index 0 of every new transcript.
const DefaultSystemPrompt = "You are a concise and accurate assistant."

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	messages []Message
	onMutate func()
}

// New returns a store holding only the system message.
func New(systemPrompt string) *Store {
	return &Store{messages: DefaultMessages(systemPrompt)}
}

// DefaultMessages returns a fresh default sequence for a new session.
func DefaultMessages(systemPrompt string) []Message {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return []Message{{Role: RoleSystem, Content: systemPrompt}}
}

// Messages returns the current sequence in insertion order. The result is a
// deep snapshot; mutating it does not affect the store.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.messages)
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Store) AddUserMessage(text string) {
	s.append(Message{Role: RoleUser, Content: text})
}

// AddAssistantMessage appends msg verbatim, tool calls included.
func (s *Store) AddAssistantMessage(msg Message) {
	msg = msg.Clone()
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	s.append(msg)
}

func (s *Store) AddToolResult(toolCallID, text string) {
	s.append(Message{Role: RoleTool, ToolCallID: toolCallID, Content: text})
}

// ResetMessages replaces the whole sequence with deep copies of msgs.
func (s *Store) ResetMessages(msgs []Message) {
	s.mu.Lock()
	s.messages = cloneAll(msgs)
	fn := s.onMutate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnMutate installs fn as the only observer, replacing any previous one.
// Past mutations are not replayed. A nil fn removes the observer.
func (s *Store) OnMutate(fn func()) {
	s.mu.Lock()
	s.onMutate = fn
	s.mu.Unlock()
}

func (s *Store) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	fn := s.onMutate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
