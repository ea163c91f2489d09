package command

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-watch/console/internal/bus"
	"github.com/aegis-watch/console/internal/clock"
	"github.com/aegis-watch/console/internal/transport"
)

type recordConn struct {
	mu      sync.Mutex
	written []map[string]any
	closed  chan struct{}
	once    sync.Once
}

func newRecordConn() *recordConn { return &recordConn{closed: make(chan struct{})} }

func (c *recordConn) ReadMessage() ([]byte, error) {
	<-c.closed
	return nil, io.EOF
}

func (c *recordConn) WriteJSON(v any) error {
	data, _ := json.Marshal(v)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, m)
	c.mu.Unlock()
	return nil
}

func (c *recordConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type recordDialer struct{ conn *recordConn }

func (d *recordDialer) Dial(url string) (transport.Conn, error) {
	return d.conn, nil
}

func newEmitter(t *testing.T) (*Emitter, *recordConn) {
	t.Helper()
	conn := newRecordConn()
	client := transport.NewClient("ws://engine.test", bus.NewRouter(), clock.NewFake(),
		transport.WithDialer(&recordDialer{conn: conn}))
	require.NoError(t, client.Connect("sess-cmd"))
	t.Cleanup(client.Disconnect)
	return NewEmitter(client), conn
}

func TestCommandsCarryCmdField(t *testing.T) {
	e, conn := newEmitter(t)

	require.NoError(t, e.ApproveAction("a1"))
	require.NoError(t, e.BlockAction("a2", "operator veto"))
	require.NoError(t, e.ConfirmThreat("t1"))
	require.NoError(t, e.MarkFalsePositive("t2"))
	require.NoError(t, e.RequestHumanControl())
	require.NoError(t, e.TerminateSession("compromised"))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.written, 6)
	assert.Equal(t, "approve_action", conn.written[0]["cmd"])
	assert.Equal(t, "a1", conn.written[0]["actionId"])
	assert.Equal(t, "block_action", conn.written[1]["cmd"])
	assert.Equal(t, "operator veto", conn.written[1]["reason"])
	assert.Equal(t, "confirm_threat", conn.written[2]["cmd"])
	assert.Equal(t, "mark_false_positive", conn.written[3]["cmd"])
	assert.Equal(t, "request_human_control", conn.written[4]["cmd"])
	assert.Equal(t, "terminate_session", conn.written[5]["cmd"])
	assert.Equal(t, "compromised", conn.written[5]["reason"])
}

func TestCommandsRejectedWhileDisconnected(t *testing.T) {
	client := transport.NewClient("ws://engine.test", bus.NewRouter(), clock.NewFake(),
		transport.WithDialer(&recordDialer{conn: newRecordConn()}))
	e := NewEmitter(client)

	assert.ErrorIs(t, e.ApproveAction("a1"), transport.ErrNotConnected)
	assert.ErrorIs(t, e.RequestHumanControl(), transport.ErrNotConnected)
}
