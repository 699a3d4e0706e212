package sessions

import (
	"context"

	"github.com/finqa/ragqa/pkg/models"
)

// DefaultHistoryMessageCap and DefaultHistoryTokenCap are the sliding
// window's default caps.
const (
	DefaultHistoryMessageCap = 20
	DefaultHistoryTokenCap   = 4000
)

// charsPerTokenEstimate is the rough token estimate used by the window:
// bytes/4.
const charsPerTokenEstimate = 4

// BuildConversationWindow fetches sessionID's history, filters it to
// user/assistant turns, and returns a sliding prefix of the tail: it walks
// the messages newest-first accumulating an approximate token count until
// either messageCap or tokenCap is exceeded, then reverses the result back
// to chronological order. Zero caps fall back to the defaults.
func BuildConversationWindow(ctx context.Context, store Store, sessionID string, messageCap, tokenCap int) ([]*models.Message, error) {
	if messageCap <= 0 {
		messageCap = DefaultHistoryMessageCap
	}
	if tokenCap <= 0 {
		tokenCap = DefaultHistoryTokenCap
	}

	history, err := store.GetHistory(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	var turns []*models.Message
	for _, msg := range history {
		if msg.Role == models.RoleUser || msg.Role == models.RoleAssistant {
			turns = append(turns, msg)
		}
	}

	var window []*models.Message
	tokens := 0
	for i := len(turns) - 1; i >= 0; i-- {
		msg := turns[i]
		msgTokens := estimateMessageTokens(msg)
		if len(window) >= messageCap || tokens+msgTokens > tokenCap {
			break
		}
		window = append(window, msg)
		tokens += msgTokens
	}

	reverseMessages(window)
	return window, nil
}

func estimateMessageTokens(msg *models.Message) int {
	return (len(msg.Content) + charsPerTokenEstimate - 1) / charsPerTokenEstimate
}

func reverseMessages(msgs []*models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
