// Package notifier implements the Error Notifier (C12): an async,
// non-blocking out-of-band alert dispatcher for unhandled faults, built
// on the slack-go/slack outbound-message transport
// (internal/channels/slack/adapter.go's client.PostMessageContext idiom) and
// its observability.Logger secret-redaction path.
package notifier

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/slack-go/slack"

	"github.com/finqa/ragqa/internal/observability"
)

// maxStackTrace bounds the stack trace captured into an alert; full traces
// can run to tens of kilobytes and the target channel is a chat transport.
const maxStackTrace = 4000

// maxMessage bounds the error message text carried into an alert.
const maxMessage = 500

// RequestContext carries the handler-local detail an alert attaches to a
// fault. Any field may be empty; the formatter omits blanks.
type RequestContext struct {
	Method    string
	Path      string
	UserID    string
	SessionID string
}

// Notifier dispatches structured fault alerts to a Slack channel. Dispatch
// never blocks the caller and never propagates a delivery failure; Notify
// spawns its own goroutine and logs delivery failures through logger.
type Notifier struct {
	client    *slack.Client
	channelID string
	env       string
	logger    *observability.Logger
}

// New builds a Notifier. token is a Slack bot token (xoxb-...); channelID is
// the ops channel to post alerts to. logger must not be nil.
func New(token, channelID, env string, logger *observability.Logger) *Notifier {
	return &Notifier{
		client:    slack.New(token),
		channelID: channelID,
		env:       env,
		logger:    logger,
	}
}

// Notify formats err and ctx into a structured alert and dispatches it
// asynchronously. Callers at a panic-recovery boundary should pass the
// recovered value's stack via CapturedStack (runtime/debug.Stack() must be
// called at the recovery site, not inside Notify, to capture the right
// frames); everywhere else, pass nil and Notify captures its own stack,
// which is less useful but still non-empty.
func (n *Notifier) Notify(ctx context.Context, err error, reqCtx RequestContext, capturedStack []byte) {
	if n == nil || err == nil {
		return
	}
	stack := capturedStack
	if stack == nil {
		stack = debug.Stack()
	}
	alert := n.format(err, reqCtx, stack)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, _, sendErr := n.client.PostMessageContext(sendCtx, n.channelID, slack.MsgOptionText(alert, false)); sendErr != nil {
			n.logger.Error(context.Background(), "notifier: failed to deliver alert", "error", sendErr)
		}
	}()
}

func (n *Notifier) format(err error, reqCtx RequestContext, stack []byte) string {
	msg := truncate(err.Error(), maxMessage)
	trace := truncate(string(stack), maxStackTrace)

	text := fmt.Sprintf("*[%s] Unhandled fault*\nTime: %s\nError: `%s`\n",
		n.env, time.Now().UTC().Format(time.RFC3339), msg)

	if reqCtx.Method != "" || reqCtx.Path != "" {
		text += fmt.Sprintf("Request: `%s %s`\n", reqCtx.Method, reqCtx.Path)
	}
	if reqCtx.UserID != "" {
		text += fmt.Sprintf("User: `%s`\n", reqCtx.UserID)
	}
	if reqCtx.SessionID != "" {
		text += fmt.Sprintf("Session: `%s`\n", reqCtx.SessionID)
	}
	if trace != "" {
		text += fmt.Sprintf("```%s```", trace)
	}

	return n.logger.Redact(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
