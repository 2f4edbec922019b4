package llmprovider

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/janhq/support-chat/internal/domain/generation"
)

// classify maps an upstream failure onto the generation error taxonomy.
func classify(err error) *generation.Error {
	if err == nil {
		return nil
	}
	if genErr, ok := generation.AsError(err); ok {
		return genErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return generation.NewError(generation.KindTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return generation.NewError(kindForStatus(apiErr.HTTPStatusCode), err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return generation.NewError(kindForStatus(reqErr.HTTPStatusCode), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return generation.NewError(generation.KindTimeout, err)
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return generation.NewError(generation.KindNetwork, err)
	}

	return generation.NewError(generation.KindUnknown, err)
}

func kindForStatus(status int) generation.ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return generation.KindAuth
	case http.StatusTooManyRequests:
		return generation.KindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return generation.KindTimeout
	default:
		return generation.KindUnknown
	}
}
