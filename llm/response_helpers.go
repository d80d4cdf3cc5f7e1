package llm

import "fmt"

// FirstChoice safely returns the first choice from a ChatResponse.
// Returns an error if the response is nil or has no choices.
func FirstChoice(resp *ChatResponse) (ChatChoice, error) {
	if resp == nil {
		return ChatChoice{}, fmt.Errorf("nil ChatResponse")
	}
	if len(resp.Choices) == 0 {
		return ChatChoice{}, fmt.Errorf("empty choices in ChatResponse (model returned no choices)")
	}
	return resp.Choices[0], nil
}

// MustFirstChoice returns the first choice or panics.
// Use only in contexts where empty choices is truly unexpected.
func MustFirstChoice(resp *ChatResponse) ChatChoice {
	choice, err := FirstChoice(resp)
	if err != nil {
		panic(err)
	}
	return choice
}

// CompletionText returns the assistant text of the first choice.
// An empty string with nil error means the model produced no text
// (e.g. a pure tool-call turn).
func CompletionText(resp *ChatResponse) (string, error) {
	choice, err := FirstChoice(resp)
	if err != nil {
		return "", err
	}
	return choice.Message.Content, nil
}
