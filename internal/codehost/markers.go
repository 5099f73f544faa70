package codehost

import (
	"fmt"
	"strings"
)

// HTML-comment markers embedded in PR and issue comment bodies. Comments
// carrying any warp-coder marker are bot comments; everything else counts
// as a user message.
const (
	// MarkerQuestion flags a clarification request posted by the
	// implement executor.
	MarkerQuestion = "<!-- warp-coder:question -->"

	// markerErrorPrefix opens an error report comment.
	markerErrorPrefix = "<!-- warp-coder:error"

	// markerActPrefix links a PR to the act that produced it so a
	// follow-up review lands on the right branch of the event log.
	markerActPrefix = "<!-- wm:act:"
)

// ActMarker renders the act-link marker for the given act id.
func ActMarker(actID string) string {
	return fmt.Sprintf("%s%s -->", markerActPrefix, actID)
}

// ErrorMarker renders an error report marker carrying the message.
func ErrorMarker(message string) string {
	sanitized := strings.ReplaceAll(message, "-->", "")
	return fmt.Sprintf("%s %s -->", markerErrorPrefix, sanitized)
}

// IsBotComment reports whether the body carries any warp-coder marker.
func IsBotComment(body string) bool {
	return strings.Contains(body, MarkerQuestion) ||
		strings.Contains(body, markerErrorPrefix) ||
		strings.Contains(body, markerActPrefix) ||
		strings.Contains(body, "<!-- wm:") ||
		strings.Contains(body, "<!-- warp-coder:")
}

// LastNonBotComment returns the most recent comment without a bot marker,
// or nil when every comment is bot-authored.
func LastNonBotComment(comments []Comment) *Comment {
	for i := len(comments) - 1; i >= 0; i-- {
		if !IsBotComment(comments[i].Body) {
			return &comments[i]
		}
	}
	return nil
}

// UserRepliedAfterQuestion reports whether a non-bot comment follows the
// most recent question marker. Used by the await_reply executor to decide
// between waiting and replied.
func UserRepliedAfterQuestion(comments []Comment) bool {
	questionIdx := -1
	for i := len(comments) - 1; i >= 0; i-- {
		if strings.Contains(comments[i].Body, MarkerQuestion) {
			questionIdx = i
			break
		}
	}
	if questionIdx == -1 {
		// No pending question; any user comment counts as a reply.
		return LastNonBotComment(comments) != nil
	}

	for i := questionIdx + 1; i < len(comments); i++ {
		if !IsBotComment(comments[i].Body) {
			return true
		}
	}
	return false
}
