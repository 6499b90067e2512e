package ai

import (
	"errors"

	"github.com/zhouzirui/medassist/backend/internal/model/chat"
	"github.com/zhouzirui/medassist/backend/internal/model/genai"
)

// Outcome is the category a remote call result falls into.
type Outcome int

const (
	OutcomeText Outcome = iota
	OutcomeTransportError
	OutcomeAPIError
	OutcomeFiltered
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeText:
		return "text"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeAPIError:
		return "api_error"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

const (
	FilteredMessage  = "I cannot provide a response due to safety guidelines. Please try rephrasing your query."
	MalformedMessage = "Sorry, I received an empty or unexpected response from the AI."
)

// Classify assigns a result to exactly one Outcome. Call failures are checked
// before the body so a failed call is never mistaken for a declined answer.
func Classify(resp *genai.GenerateContentResponse, err error) Outcome {
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			return OutcomeAPIError
		case errors.Is(err, ErrMalformedResponse):
			return OutcomeMalformed
		default:
			return OutcomeTransportError
		}
	}

	if resp.Text() != "" {
		return OutcomeText
	}

	if isFiltered(resp) {
		return OutcomeFiltered
	}

	return OutcomeMalformed
}

// Interpret converts a call result into the assistant turn to append.
func Interpret(resp *genai.GenerateContentResponse, err error) chat.Turn {
	switch Classify(resp, err) {
	case OutcomeText:
		return chat.AssistantTurn(resp.Text())
	case OutcomeTransportError, OutcomeAPIError:
		return chat.AssistantError("Sorry, there was an error: " + err.Error() + ". Please try again.")
	case OutcomeFiltered:
		return chat.AssistantError(FilteredMessage)
	default:
		return chat.AssistantError(MalformedMessage)
	}
}

func isFiltered(resp *genai.GenerateContentResponse) bool {
	if resp.BlockReason() != "" {
		return true
	}
	if candidate := resp.FirstCandidate(); candidate != nil {
		return genai.IsFilterFinishReason(candidate.FinishReason)
	}
	return false
}

// AsError returns the taxonomy error behind a result, or nil for a text reply.
func AsError(resp *genai.GenerateContentResponse, err error) error {
	switch Classify(resp, err) {
	case OutcomeText:
		return nil
	case OutcomeFiltered:
		return ErrContentFiltered
	case OutcomeMalformed:
		if err != nil {
			return err
		}
		return ErrMalformedResponse
	default:
		return err
	}
}
