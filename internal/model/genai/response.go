package genai

import "strings"

// GenerateContentResponse generateContent 成功响应。只声明会被读取的字段。
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// Candidate 模型给出的一个候选回复
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// PromptFeedback 针对输入的过滤反馈
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// FirstCandidate returns the first candidate or nil.
func (r *GenerateContentResponse) FirstCandidate() *Candidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Text joins the text parts of the first candidate in order.
func (r *GenerateContentResponse) Text() string {
	candidate := r.FirstCandidate()
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	if len(candidate.Content.Parts) == 1 {
		return candidate.Content.Parts[0].Text
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		builder.WriteString(part.Text)
	}
	return builder.String()
}

// BlockReason returns the prompt-level block reason, if any.
func (r *GenerateContentResponse) BlockReason() string {
	if r == nil || r.PromptFeedback == nil {
		return ""
	}
	return r.PromptFeedback.BlockReason
}
