package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoom struct {
	mu       sync.Mutex
	starts   []uuid.UUID
	progress map[uuid.UUID][]float64
	leaves   []uuid.UUID
	startErr error
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{progress: make(map[uuid.UUID][]float64)}
}

func (f *fakeRoom) Join(ctx context.Context, name string, sender room.Sender) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeRoom) Leave(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, id)
	return nil
}

func (f *fakeRoom) StartRace(ctx context.Context, requester uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, requester)
	return f.startErr
}

func (f *fakeRoom) ReportProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[id] = append(f.progress[id], progress)
	return nil
}

func newTestConnection(rm Room) *Connection {
	return &Connection{
		ID:            "conn-1",
		ParticipantID: uuid.New(),
		PlayerName:    "alice",
		Manager:       NewConnectionManager(DefaultConnectionConfig(), rm),
		send:          make(chan []byte, 8),
	}
}

func drain(t *testing.T, c *Connection) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for {
		select {
		case data := <-c.send:
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestHandleClientMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("start game", func(t *testing.T) {
		rm := newFakeRoom()
		c := newTestConnection(rm)

		c.handleClientMessage(ctx, []byte(`{"type":"start_game"}`))

		assert.Equal(t, []uuid.UUID{c.ParticipantID}, rm.starts)
		assert.Empty(t, drain(t, c), "rejections are reported by the room, not the gateway")
	})

	t.Run("start game rejected", func(t *testing.T) {
		rm := newFakeRoom()
		rm.startErr = room.ErrTooFewParticipants
		c := newTestConnection(rm)

		c.handleClientMessage(ctx, []byte(`{"type":"start_game"}`))

		assert.Len(t, rm.starts, 1)
		assert.Empty(t, drain(t, c))
	})

	t.Run("progress update", func(t *testing.T) {
		rm := newFakeRoom()
		c := newTestConnection(rm)

		c.handleClientMessage(ctx, []byte(`{"type":"progress_update","progress":37.5}`))
		c.handleClientMessage(ctx, []byte(`{"type":"progress_update","progress":100}`))

		assert.Equal(t, []float64{37.5, 100}, rm.progress[c.ParticipantID])
	})

	malformed := []string{
		`not json`,
		`{"progress":10}`,
		`{"type":"progress_update"}`,
		`{"type":"dance"}`,
	}
	for _, raw := range malformed {
		t.Run("malformed "+raw, func(t *testing.T) {
			rm := newFakeRoom()
			c := newTestConnection(rm)

			c.handleClientMessage(ctx, []byte(raw))

			assert.Empty(t, rm.starts)
			assert.Empty(t, rm.progress)
			assert.Equal(t, []map[string]interface{}{{"type": "error", "message": "Invalid message"}}, drain(t, c))
		})
	}
}

func TestConnectionSend(t *testing.T) {
	c := newTestConnection(newFakeRoom())

	require.NoError(t, c.Send(events.NewProgressUpdate("bob", 12)))
	assert.Equal(t, []map[string]interface{}{{
		"type":        "progress_update",
		"player_name": "bob",
		"progress":    float64(12),
	}}, drain(t, c))

	c.closeSend()
	c.closeSend()
	assert.ErrorIs(t, c.Send(events.NewNewPlayer("bob")), ErrConnectionClosed)
}

// floodRoom starts sending to a joiner from another goroutine before Join returns,
// the way the room goroutine does.
type floodRoom struct {
	*fakeRoom
	sent chan error
}

func (f *floodRoom) Join(ctx context.Context, name string, sender room.Sender) (uuid.UUID, error) {
	go func() {
		for i := 0; i < 1000; i++ {
			if err := sender.Send(events.NewProgressUpdate(name, float64(i))); err != nil {
				f.sent <- err
				return
			}
		}
		f.sent <- nil
	}()
	return uuid.New(), nil
}

func TestUpgradeConnection_SendDuringJoin(t *testing.T) {
	rm := &floodRoom{fakeRoom: newFakeRoom(), sent: make(chan error, 1)}

	config := DefaultConnectionConfig()
	config.SendBufferSize = 1
	cm := NewConnectionManager(config, rm)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/alice"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case err := <-rm.sent:
		if err != nil {
			assert.ErrorIs(t, err, ErrSendBufferFull)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sends to the joining connection did not complete")
	}
}
