package consultation

import (
	"sync"
	"testing"

	"studioguideapi/test"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *capturedEvents) forSession(id string) []*sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*sentry.Event
	for _, event := range c.events {
		if event.Tags["session"] == id {
			out = append(out, event)
		}
	}
	return out
}

func captureSentry(t *testing.T) *capturedEvents {
	captured := &capturedEvents{}
	require.NoError(t, sentry.Init(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			captured.mu.Lock()
			captured.events = append(captured.events, event)
			captured.mu.Unlock()
			return nil
		},
	}))
	t.Cleanup(func() { sentry.Init(sentry.ClientOptions{}) })
	return captured
}

func TestGenerationFailureIsTaggedWithIndex(t *testing.T) {
	captured := captureSentry(t)
	stylist := test.NewStylistMock()
	stylist.GenerateErr = assert.AnError

	c := NewController("tagged-session", stylist, zerolog.Nop())
	t.Cleanup(c.Close)
	require.True(t, c.SelectImage(photo()))
	require.NoError(t, c.StartAnalysis())
	waitSettled(t, c)
	require.NoError(t, c.SelectSuggestionIndex(2))
	waitSettled(t, c)

	events := captured.forSession("tagged-session")
	require.Len(t, events, 2)
	indices := []string{}
	for _, event := range events {
		assert.Equal(t, "partner_image", event.Tags["failure_type"])
		indices = append(indices, event.Tags["suggestion_index"])
	}
	assert.ElementsMatch(t, []string{"0", "2"}, indices)
}
