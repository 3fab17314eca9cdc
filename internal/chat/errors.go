// ABOUTME: Classification of Discord REST and gateway errors
// ABOUTME: Maps discordgo errors onto the retry layer's failure classes
package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"github.com/harper/marcusbot/internal/fetch"
	"github.com/harper/marcusbot/internal/retry"
)

// ErrConnectionClosed is signalled when the gateway connection drops.
var ErrConnectionClosed = errors.New("discord gateway connection closed")

// Classify tags err for the retry layer: rate limits carry Discord's
// retry-after, REST errors other than 429 are permanent but keep their
// status, gateway closes and network errors are transient, and anything
// else is permanent.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return retry.NewRateLimited(err, rateLimitDelay(rl))
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		status := rest.Response.StatusCode
		if status == http.StatusTooManyRequests {
			return retry.FromStatus(status, fetch.RetryAfter(rest.Response.Header), err)
		}
		return &retry.Failure{Class: retry.Permanent, Status: status, Err: err}
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, ErrConnectionClosed) {
		return retry.NewTransient(err)
	}

	if retry.ClassOf(err) == retry.Transient {
		return retry.NewTransient(err)
	}
	return retry.NewPermanent(err)
}

func rateLimitDelay(rl *discordgo.RateLimitError) time.Duration {
	if rl.RateLimit == nil || rl.TooManyRequests == nil {
		return 0
	}
	return rl.RetryAfter
}
