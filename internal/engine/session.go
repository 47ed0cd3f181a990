package engine

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn record in the append-only conversation transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ContextWindow is how many recent messages the generation layer sees.
const ContextWindow = 6

// Session is the per-conversation state owned exclusively by the engine.
// Processing within a session is strictly sequential: each turn's pipeline
// runs to completion before the next turn is accepted. Sessions themselves
// are independent and may be processed concurrently.
type Session struct {
	ID            string       `json:"id"`
	Signals       Vector       `json:"signals"`
	Stage         Stage        `json:"stage"`
	LockStage     bool         `json:"lock_stage"`
	Mode          ResponseMode `json:"response_mode"`
	TurnState     TurnState    `json:"turn_state"`
	Conversation  []Message    `json:"conversation"`
	ReportOffered bool         `json:"report_offered"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewSession creates an empty session: all intensities zero, stage opening,
// latch clear, bot leads.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		Signals:      NewVector(),
		Stage:        StageOpening,
		Mode:         ModeExplore,
		TurnState:    TurnBotLeads,
		Conversation: make([]Message, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Reset recreates the session from the empty state in place, clearing the
// safety latch with everything else. The session ID is kept so callers
// holding the handle stay attached.
func (s *Session) Reset() {
	s.Signals = NewVector()
	s.Stage = StageOpening
	s.LockStage = false
	s.Mode = ModeExplore
	s.TurnState = TurnBotLeads
	s.Conversation = s.Conversation[:0]
	s.ReportOffered = false
	s.UpdatedAt = time.Now().UTC()
}

// Append adds a message to the transcript.
func (s *Session) Append(role Role, content string) {
	s.Conversation = append(s.Conversation, Message{Role: role, Content: content})
}

// Recent returns the last n transcript messages.
func (s *Session) Recent(n int) []Message {
	if n <= 0 || len(s.Conversation) <= n {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}
