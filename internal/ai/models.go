package ai

import "context"

// CorrectionRequest is sent to the correction service.
type CorrectionRequest struct {
	Text              string `json:"text"`
	WantsEmailVariant bool   `json:"wantsEmailVariant"`
}

// CorrectionResponse is the correction service's success payload.
type CorrectionResponse struct {
	CorrectedText string `json:"correctedText"`
	EmailVariant  string `json:"emailVariant,omitempty"`
}

// LetterRequest is sent to the letter-generation service.
type LetterRequest struct {
	Type      string            `json:"type"`
	Variables map[string]string `json:"variables"`
}

// LetterResponse is the letter-generation service's success payload.
type LetterResponse struct {
	LetterText string `json:"letterText"`
}

// Provider is a backend able to correct report text and write letters. Every
// failure it returns is a *NetworkError, *RemoteServiceError or
// *MalformedResponseError.
type Provider interface {
	Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResponse, error)
	GenerateLetter(ctx context.Context, req LetterRequest) (*LetterResponse, error)
}
