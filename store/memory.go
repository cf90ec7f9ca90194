// Package store provides the in-process conversation memory store.
//
// Durability is intentionally out of scope: conversations live for the
// lifetime of the process. The store is safe for concurrent use; mutations
// of the same conversation are serialized while different conversations
// proceed independently.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one turn utterance inside a conversation.
// Sequence order in the conversation is authoritative; Timestamp is
// informational only.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// Message roles used by the chat core. The system role is not stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// conversation holds one chat session. The embedded mutex serializes
// mutations for this conversation only.
type conversation struct {
	mu       sync.Mutex
	messages []Message
	summary  string
}

// ConversationStore is an in-process keyed map of conversations.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*conversation),
	}
}

// GetOrCreate returns the given conversation id, creating an empty
// conversation for it when unknown. An empty id generates a fresh one.
// Idempotent for known ids: no side effect beyond the lookup.
func (s *ConversationStore) GetOrCreate(id string) string {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		s.conversations[id] = &conversation{}
	}
	return id
}

// get returns the conversation for id, or nil if unknown.
func (s *ConversationStore) get(id string) *conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations[id]
}

// getOrCreateConversation returns the conversation for id, creating it
// when missing.
func (s *ConversationStore) getOrCreateConversation(id string) *conversation {
	if c := s.get(id); c != nil {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		c = &conversation{}
		s.conversations[id] = c
	}
	return c
}

// AddMessage appends a message to the conversation. Callers are expected
// to resolve the id via GetOrCreate first, but an unknown id creates the
// conversation rather than dropping the message.
func (s *ConversationStore) AddMessage(id, role, content string) {
	c := s.getOrCreateConversation(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{
		Timestamp: time.Now(),
		Role:      role,
		Content:   content,
	})
}

// AddTurn appends a question and its answer as one unit, holding the
// conversation lock across both appends so concurrent turns on the same
// conversation can never interleave their user/assistant pairs.
func (s *ConversationStore) AddTurn(id, question, answer string) {
	c := s.getOrCreateConversation(id)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages,
		Message{Timestamp: now, Role: RoleUser, Content: question},
		Message{Timestamp: now, Role: RoleAssistant, Content: answer},
	)
}

// GetSummary returns the accumulated rolling summary, or "" when the
// conversation is unknown or has no summary yet. Reads never fail.
func (s *ConversationStore) GetSummary(id string) string {
	c := s.get(id)
	if c == nil {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// SetSummary overwrites the stored summary. The caller produces the
// already-concatenated value; this is a pure write, not an append.
func (s *ConversationStore) SetSummary(id, summary string) {
	c := s.getOrCreateConversation(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = summary
}

// ListMessages returns a copy of the full, unfiltered history.
// Unknown ids yield an empty slice.
func (s *ConversationStore) ListMessages(id string) []Message {
	c := s.get(id)
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear empties messages and summary but keeps the conversation entry.
func (s *ConversationStore) Clear(id string) {
	c := s.get(id)
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.summary = ""
}

// Delete removes the conversation entirely.
func (s *ConversationStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// Exists reports whether the conversation id is known.
func (s *ConversationStore) Exists(id string) bool {
	return s.get(id) != nil
}
