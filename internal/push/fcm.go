package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// fcmMaxTokens is the FCM multicast limit per request.
const fcmMaxTokens = 500

// multicastSender is the part of *messaging.Client the gateway uses.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway dispatches through Firebase Cloud Messaging. Provider calls are
// throttled by a token-bucket limiter.
type FCMGateway struct {
	sender   multicastSender
	limiter  *rate.Limiter
	classify func(error) FailureReason
}

// NewFCMGateway initializes the Firebase messaging client from a service
// account file. An empty path yields an unconfigured gateway whose Dispatch
// calls fail with ErrGatewayUnavailable.
func NewFCMGateway(ctx context.Context, credentialsFile string, perSecond float64) (*FCMGateway, error) {
	if credentialsFile == "" {
		logrus.Warn("FCM credentials not configured, push dispatch will fail until they are set")
		return newFCMGateway(nil, perSecond), nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return newFCMGateway(client, perSecond), nil
}

func newFCMGateway(sender multicastSender, perSecond float64) *FCMGateway {
	if perSecond <= 0 {
		perSecond = 10
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &FCMGateway{
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		classify: classifyFCMError,
	}
}

// Dispatch sends msg to every token, in chunks of at most 500 tokens. When a
// chunk fails after earlier chunks went out, the outcomes of those chunks are
// returned together with the error.
func (g *FCMGateway) Dispatch(ctx context.Context, tokens []string, msg Message) (*DispatchResult, error) {
	result := &DispatchResult{}
	if len(tokens) == 0 {
		return result, nil
	}
	if g.sender == nil {
		return nil, fmt.Errorf("%w: provider not configured", ErrGatewayUnavailable)
	}

	for start := 0; start < len(tokens); start += fcmMaxTokens {
		end := start + fcmMaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		if err := g.limiter.Wait(ctx); err != nil {
			return partial(result), fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		resp, err := g.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		})
		if err != nil {
			return partial(result), fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}

		result.Attempted += len(chunk)
		for i, r := range resp.Responses {
			if i >= len(chunk) {
				break
			}
			if r.Success {
				result.Succeeded++
				continue
			}
			failure := TokenFailure{Token: chunk[i], Reason: g.classify(r.Error)}
			if r.Error != nil {
				failure.Detail = r.Error.Error()
			}
			result.Failures = append(result.Failures, failure)
		}
	}

	logrus.WithFields(logrus.Fields{
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    len(result.Failures),
	}).Debug("Push dispatch finished")
	return result, nil
}

func partial(result *DispatchResult) *DispatchResult {
	if result.Attempted == 0 {
		return nil
	}
	return result
}

// classifyFCMError marks a token invalid only on errors that name the token
// itself. INVALID_ARGUMENT is also returned for malformed or oversized
// payloads, so it stays transient.
func classifyFCMError(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonTransient
	case messaging.IsUnregistered(err),
		messaging.IsSenderIDMismatch(err):
		return ReasonInvalidToken
	default:
		return ReasonTransient
	}
}
