package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// Message is a push notification payload
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendResult reports which tokens FCM rejected
type SendResult struct {
	SuccessCount int
	FailureCount int
	// InvalidTokens were rejected as unregistered or malformed and should be deactivated
	InvalidTokens []string
}

// Sender delivers push notifications to device tokens
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) (*SendResult, error)
}

// FCMSender sends notifications through Firebase Cloud Messaging
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender creates a sender from an initialized Firebase app
func NewFCMSender(ctx context.Context, app *firebase.App) (*FCMSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	log.Println("✅ Firebase FCM initialized")
	return &FCMSender{client: client}, nil
}

// maxMulticastTokens is the FCM limit for one SendEachForMulticast call
const maxMulticastTokens = 500

// Send sends msg to every token, one multicast request per 500 tokens
func (s *FCMSender) Send(ctx context.Context, tokens []string, msg Message) (*SendResult, error) {
	result := &SendResult{}
	for _, batch := range batches(tokens, maxMulticastTokens) {
		br, err := s.client.SendEachForMulticast(ctx, multicast(batch, msg))
		if err != nil {
			return nil, fmt.Errorf("error sending multicast message: %w", err)
		}

		result.SuccessCount += br.SuccessCount
		result.FailureCount += br.FailureCount
		for idx, resp := range br.Responses {
			if resp.Success {
				continue
			}
			log.Printf("⚠️ FCM failure for token %s: %v", shorten(batch[idx]), resp.Error)
			if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) {
				result.InvalidTokens = append(result.InvalidTokens, batch[idx])
			}
		}
	}
	return result, nil
}

func multicast(tokens []string, msg Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "shifts",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

// batches splits tokens into consecutive chunks of at most size tokens
func batches(tokens []string, size int) [][]string {
	var out [][]string
	for len(tokens) > size {
		out = append(out, tokens[:size:size])
		tokens = tokens[size:]
	}
	if len(tokens) > 0 {
		out = append(out, tokens)
	}
	return out
}

// LogSender is used when Firebase is not configured; it only logs what would be sent
type LogSender struct{}

func (LogSender) Send(_ context.Context, tokens []string, msg Message) (*SendResult, error) {
	log.Printf("🔕 Push disabled, would send %q to %d device(s)", msg.Title, len(tokens))
	return &SendResult{SuccessCount: len(tokens)}, nil
}

func shorten(token string) string {
	if len(token) <= 16 {
		return token
	}
	return token[:16] + "..."
}
