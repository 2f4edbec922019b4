package requests

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/janhq/support-chat/internal/domain/chat"
)

// InvalidBodyMessage is returned when the body is not a JSON object.
const InvalidBodyMessage = "Invalid request body"

// SendMessageRequest is the body of POST /v1/chat/message and POST /v1/chat/stream.
type SendMessageRequest struct {
	Message   string `json:"message" binding:"required" example:"What is your return policy?"`
	SessionID string `json:"sessionId,omitempty" binding:"omitempty,uuid" example:"0190b6f2-3c4d-7e8f-9a0b-1c2d3e4f5a6b"`
}

// Validate applies the checks binding tags cannot express. It returns the client message of
// the first failure, or "".
func (r SendMessageRequest) Validate(maxLength int) string {
	text := strings.TrimSpace(r.Message)
	if text == "" {
		return chat.MessageEmpty
	}
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return chat.TooLongMessage(maxLength)
	}
	return ""
}

// BindingMessage maps a gin binding error to its client message.
func BindingMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		switch validationErrs[0].Field() {
		case "Message":
			return chat.MessageEmpty
		case "SessionID":
			return chat.InvalidSessionMessage
		}
	}
	if errors.Is(err, io.EOF) {
		return chat.MessageEmpty
	}
	return InvalidBodyMessage
}
