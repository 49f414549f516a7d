package notification

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenList(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%04d", i)
	}
	return tokens
}

func TestBatchesRespectMulticastLimit(t *testing.T) {
	tokens := tokenList(1201)

	got := batches(tokens, maxMulticastTokens)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 500)
	assert.Len(t, got[1], 500)
	assert.Len(t, got[2], 201)
	assert.Equal(t, "token-0000", got[0][0])
	assert.Equal(t, "token-0500", got[1][0])
	assert.Equal(t, "token-1200", got[2][200])
}

func TestBatchesExactAndEmpty(t *testing.T) {
	assert.Empty(t, batches(nil, maxMulticastTokens))

	got := batches(tokenList(500), maxMulticastTokens)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 500)
}

func TestMulticastCarriesPayload(t *testing.T) {
	m := multicast([]string{"a", "b"}, Message{Title: "Plantão", Body: "Amanhã", Data: map[string]string{"type": "reminder"}})
	assert.Equal(t, []string{"a", "b"}, m.Tokens)
	assert.Equal(t, "Plantão", m.Notification.Title)
	assert.Equal(t, "reminder", m.Data["type"])
	assert.Equal(t, "shifts", m.Android.Notification.ChannelID)
}

func TestLogSenderCountsTokens(t *testing.T) {
	res, err := LogSender{}.Send(context.Background(), []string{"a", "b", "c"}, Message{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.SuccessCount)
}
