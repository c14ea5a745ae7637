// Package dedup drops repeated deliveries of the same chat message.
package dedup

import (
	"context"
	"strconv"
	"time"
)

// DefaultWindow is how long a seen message id is remembered.
const DefaultWindow = 5 * time.Minute

// Filter reports whether a message should be processed. The first call for
// an id within the window returns true; every later call returns false.
type Filter interface {
	ShouldProcess(ctx context.Context, id string) bool
}

// Key builds the filter id for a message. Telegram message ids are only
// unique within a chat.
func Key(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(messageID)
}
