// Package chatbot – dispatcher-owned conversation state.
//
// Sessions, bot pauses, and waiting slots are process-local and
// non-persistent: a restart forgets them all. One State value guards the
// three collections behind a single mutex; every public operation leaves
// the pause/waiting invariant intact (at most one of the two per phone).
package chatbot

import (
	"sync"
	"time"

	"github.com/oaddad/nucleo-backend/internal/llm"
)

// DefaultSessionTTL evicts idle LLM sessions.
const DefaultSessionTTL = 30 * time.Minute

// maxTranscriptMessages bounds the per-phone transcript sent to the LLM.
const maxTranscriptMessages = 20

// WaitingSlot marks a customer waiting for a human operator.
type WaitingSlot struct {
	Phone    string
	PushName string
	Message  string
	Since    time.Time
}

// session holds one phone's short-term LLM transcript.
type session struct {
	messages []llm.Message
	updated  time.Time
}

// State is the dispatcher's in-memory conversation state.
type State struct {
	mu         sync.Mutex
	sessions   map[string]*session
	pauses     map[string]time.Time
	waiting    map[string]WaitingSlot
	SessionTTL time.Duration

	// now is swappable in tests.
	now func() time.Time
}

// NewState constructs an empty State with the default session TTL.
func NewState() *State {
	return &State{
		sessions:   make(map[string]*session),
		pauses:     make(map[string]time.Time),
		waiting:    make(map[string]WaitingSlot),
		SessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
}

// Pause installs a bot pause for the phone until now+d and removes any
// waiting slot, so the operator who took over is not also listed as
// pending pickup.
func (s *State) Pause(phoneKey string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses[phoneKey] = s.now().Add(d)
	delete(s.waiting, phoneKey)
}

// Resume clears the phone's pause, if any.
func (s *State) Resume(phoneKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pauses, phoneKey)
}

// Paused reports whether an unexpired pause exists for the phone. The
// deadline itself counts as expired; expired pauses are removed on read.
func (s *State) Paused(phoneKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.pauses[phoneKey]
	if !ok {
		return false
	}
	if !s.now().Before(exp) {
		delete(s.pauses, phoneKey)
		return false
	}
	return true
}

// AddWaiting installs a waiting slot for the phone. Any pause for the
// phone is dropped to keep the mutual-exclusion invariant.
func (s *State) AddWaiting(slot WaitingSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.Since.IsZero() {
		slot.Since = s.now()
	}
	s.waiting[slot.Phone] = slot
	delete(s.pauses, slot.Phone)
}

// RemoveWaiting clears the phone's waiting slot (operator pickup).
func (s *State) RemoveWaiting(phoneKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waiting, phoneKey)
}

// Waiting reports whether a waiting slot exists for the phone.
func (s *State) Waiting(phoneKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waiting[phoneKey]
	return ok
}

// WaitingSlots lists the current slots, oldest first.
func (s *State) WaitingSlots() []WaitingSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WaitingSlot, 0, len(s.waiting))
	for _, slot := range s.waiting {
		out = append(out, slot)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Since.Before(out[j-1].Since); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Transcript returns a copy of the phone's session transcript, creating
// nothing. Expired sessions read as empty.
func (s *State) Transcript(phoneKey string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[phoneKey]
	if !ok || s.expired(sess) {
		delete(s.sessions, phoneKey)
		return nil
	}
	out := make([]llm.Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

// AppendExchange records one user/assistant exchange in the phone's
// session, trimming the transcript to its bound.
func (s *State) AppendExchange(phoneKey, userMsg, assistantMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[phoneKey]
	if !ok || s.expired(sess) {
		sess = &session{}
		s.sessions[phoneKey] = sess
	}
	sess.messages = append(sess.messages,
		llm.Message{Role: llm.RoleUser, Content: userMsg},
		llm.Message{Role: llm.RoleAssistant, Content: assistantMsg},
	)
	if len(sess.messages) > maxTranscriptMessages {
		sess.messages = sess.messages[len(sess.messages)-maxTranscriptMessages:]
	}
	sess.updated = s.now()
}

// ResetSession drops the phone's transcript.
func (s *State) ResetSession(phoneKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phoneKey)
}

func (s *State) expired(sess *session) bool {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return s.now().Sub(sess.updated) > ttl
}
