package sender

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	failures int
	sent     []tgbotapi.Chattable
	requests int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("telegram: too many requests")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newProcessor(t *testing.T, api API) *Processor {
	t.Helper()
	p, err := New(Config{ChannelID: "@staff", PerSecond: 1000, Burst: 10}, zerolog.Nop(), api, WithBackoff(time.Millisecond))
	require.NoError(t, err)
	return p
}

func TestSendWithoutChannel(t *testing.T) {
	api := &fakeAPI{}
	p, err := New(Config{}, zerolog.Nop(), api)
	require.NoError(t, err)

	_, err = p.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoChannel)
	assert.Empty(t, api.sent)
}

func TestNewRejectsNegativeRate(t *testing.T) {
	_, err := New(Config{PerSecond: -1}, zerolog.Nop(), &fakeAPI{})
	assert.Error(t, err)
}

func TestSendRetries(t *testing.T) {
	api := &fakeAPI{failures: 2}
	p := newProcessor(t, api)

	id, err := p.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.Len(t, api.sent, 1)
	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "@staff", msg.ChannelUsername)
	assert.Equal(t, "hello", msg.Text)
}

func TestSendGivesUp(t *testing.T) {
	api := &fakeAPI{failures: 5}
	p := newProcessor(t, api)

	_, err := p.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send message")
	assert.Equal(t, 2, api.failures, "three attempts consumed")
}

func TestSendCancelled(t *testing.T) {
	api := &fakeAPI{failures: 5}
	p, err := New(Config{ChannelID: "@staff", PerSecond: 1000, Burst: 10}, zerolog.Nop(), api, WithBackoff(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Send(ctx, "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSendSplitsLongText(t *testing.T) {
	api := &fakeAPI{}
	p := newProcessor(t, api)

	line := strings.Repeat("x", 99) + "\n"
	_, err := p.Send(context.Background(), strings.Repeat(line, 100))
	require.NoError(t, err)
	assert.Len(t, api.sent, 3)
}

func TestRequest(t *testing.T) {
	api := &fakeAPI{}
	p := newProcessor(t, api)
	require.NoError(t, p.Request(context.Background(), tgbotapi.NewCallback("id", "")))
	assert.Equal(t, 1, api.requests)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "abc", 10, []string{"abc"}},
		{"lines", "aaa\nbbb\nccc", 8, []string{"aaa\nbbb", "ccc"}},
		{"no break", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"runes", "ééé", 3, []string{"é", "é", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, tt.limit))
		})
	}
}
