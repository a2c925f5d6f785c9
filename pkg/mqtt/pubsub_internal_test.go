package mqtt

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type message struct {
	topic   string
	payload []byte
	acked   bool
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 1 }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 1 }
func (m *message) Payload() []byte   { return m.payload }
func (m *message) Ack()              { m.acked = true }

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		payload string
		err     error
		called  bool
		acked   bool
	}{
		{desc: "valid payload", payload: `{"round":2}`, called: true, acked: true},
		{desc: "handler error still acks", payload: `{"round":2}`, err: errors.New("boom"), called: true, acked: true},
		{desc: "invalid payload", payload: `round 2`},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			called := false
			h := func(topic string, msg map[string]any) error {
				called = true
				assert.Equal(t, "rounds", topic)
				assert.InDelta(t, 2, msg["round"], 0)

				return tc.err
			}

			m := &message{topic: "rounds", payload: []byte(tc.payload)}
			handleMessage(h, slog.Default())(nil, m)
			assert.Equal(t, tc.called, called)
			assert.Equal(t, tc.acked, m.acked)
		})
	}
}
