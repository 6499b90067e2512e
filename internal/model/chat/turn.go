package chat

import "time"

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Status marks whether a turn is a regular utterance or an error notice.
type Status string

const (
	StatusNormal Status = "normal"
	StatusError  Status = "error"
)

// Turn is one utterance in a conversation. Turns are immutable once appended.
type Turn struct {
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserTurn builds a normal turn authored by the user.
func UserTurn(text string) Turn {
	return Turn{Text: text, Sender: SenderUser, Status: StatusNormal, CreatedAt: time.Now().UTC()}
}

// AssistantTurn builds a normal assistant turn.
func AssistantTurn(text string) Turn {
	return Turn{Text: text, Sender: SenderAssistant, Status: StatusNormal, CreatedAt: time.Now().UTC()}
}

// AssistantError builds an assistant turn flagged as an error.
func AssistantError(text string) Turn {
	return Turn{Text: text, Sender: SenderAssistant, Status: StatusError, CreatedAt: time.Now().UTC()}
}

// IsError reports whether the turn carries an error notice.
func (t Turn) IsError() bool {
	return t.Status == StatusError
}
