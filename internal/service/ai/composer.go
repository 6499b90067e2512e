package ai

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/genai"
)

// Composer turns a transcript snapshot plus the pending user text into a
// generateContent request. A Composer holds only fixed settings, so composing
// the same inputs twice yields structurally identical requests.
type Composer struct {
	SafetySettings   []genai.SafetySetting
	GenerationConfig *genai.GenerationConfig
}

// NewComposer returns a Composer with the given safety settings.
func NewComposer(safety []genai.SafetySetting, generation *genai.GenerationConfig) Composer {
	return Composer{SafetySettings: safety, GenerationConfig: generation}
}

// Compose builds the request. history must be the transcript as it was before
// the pending user turn was appended.
func (c Composer) Compose(preamble string, history []chat.Turn, text string) (*genai.GenerateContentRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	messages := buildHistoryMessages(history)
	messages = append(messages, schema.UserMessage(text))

	req := &genai.GenerateContentRequest{
		Contents:       toContents(messages),
		SafetySettings: append([]genai.SafetySetting(nil), c.SafetySettings...),
	}

	if strings.TrimSpace(preamble) != "" {
		req.SystemInstruction = &genai.Content{Parts: []genai.Part{{Text: preamble}}}
	}

	if c.GenerationConfig != nil {
		generation := *c.GenerationConfig
		req.GenerationConfig = &generation
	}

	return req, nil
}

func buildHistoryMessages(history []chat.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Sender {
		case chat.SenderUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case chat.SenderAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return messages
}

func toContents(messages []*schema.Message) []genai.Content {
	contents := make([]genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == schema.Assistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.Content{
			Role:  role,
			Parts: []genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}
