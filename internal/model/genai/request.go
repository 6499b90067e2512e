package genai

// 角色取值，对应 generateContent 的 contents[].role
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// GenerateContentRequest generateContent 请求体
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content 一条带角色的消息
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part 消息片段，目前只使用文本
type Part struct {
	Text string `json:"text"`
}

// SafetySetting 安全过滤类别与阈值
type SafetySetting struct {
	Category  string `json:"category" yaml:"category"`
	Threshold string `json:"threshold" yaml:"threshold"`
}

// GenerationConfig 可选的生成参数
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopK            *int     `json:"topK,omitempty" yaml:"top_k,omitempty"`
	TopP            *float64 `json:"topP,omitempty" yaml:"top_p,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty" yaml:"max_output_tokens,omitempty"`
}
