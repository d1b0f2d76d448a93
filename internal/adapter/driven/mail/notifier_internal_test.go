package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationDeadline(t *testing.T) {
	now := time.Date(2026, 3, 2, 3, 50, 0, 0, time.UTC)

	t.Run("no context deadline uses fixed timeout", func(t *testing.T) {
		got := conversationDeadline(context.Background(), now)
		assert.Equal(t, now.Add(time.Minute), got)
	})

	t.Run("context deadline wins", func(t *testing.T) {
		want := now.Add(10 * time.Second)
		ctx, cancel := context.WithDeadline(context.Background(), want)
		defer cancel()

		assert.Equal(t, want, conversationDeadline(ctx, now))
	})
}
