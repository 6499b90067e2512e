package genai

// 安全类别
const (
	CategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	CategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	CategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	CategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// 常用阈值
const (
	ThresholdBlockNone           = "BLOCK_NONE"
	ThresholdBlockOnlyHigh       = "BLOCK_ONLY_HIGH"
	ThresholdBlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
	ThresholdBlockLowAndAbove    = "BLOCK_LOW_AND_ABOVE"
)

// finishReason 中表示内容被过滤的取值
const (
	FinishReasonStop              = "STOP"
	FinishReasonSafety            = "SAFETY"
	FinishReasonBlocklist         = "BLOCKLIST"
	FinishReasonProhibitedContent = "PROHIBITED_CONTENT"
	FinishReasonSPII              = "SPII"
)

// DefaultSafetySettings 返回四个默认类别，统一使用给定阈值。
func DefaultSafetySettings(threshold string) []SafetySetting {
	if threshold == "" {
		threshold = ThresholdBlockMediumAndAbove
	}
	return []SafetySetting{
		{Category: CategoryHarassment, Threshold: threshold},
		{Category: CategoryHateSpeech, Threshold: threshold},
		{Category: CategorySexuallyExplicit, Threshold: threshold},
		{Category: CategoryDangerousContent, Threshold: threshold},
	}
}

// IsFilterFinishReason reports whether a finish reason means the content was withheld.
func IsFilterFinishReason(reason string) bool {
	switch reason {
	case FinishReasonSafety, FinishReasonBlocklist, FinishReasonProhibitedContent, FinishReasonSPII:
		return true
	default:
		return false
	}
}
