package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/campus-rath/internal/models"
)

func newTestHub(t *testing.T, refreshes *int32) (*Hub, *websocket.Conn) {
	t.Helper()
	hub, url := startHub(t, func(ctx context.Context) Snapshot {
		atomic.AddInt32(refreshes, 1)
		return Snapshot{State: models.UnknownState(fallback)}
	})
	return hub, dialHub(t, url)
}

func startHub(t *testing.T, refresh func(ctx context.Context) Snapshot) (*Hub, string) {
	t.Helper()
	hub := NewHub(fallback, refresh)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// storeStub stands in for the vehicle document the loop reads.
type storeStub struct {
	mu    sync.Mutex
	state models.VehicleState
}

func (s *storeStub) set(state models.VehicleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *storeStub) poll(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, ReadAt: time.Now()}
}

func readView(t *testing.T, conn *websocket.Conn) View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var view View
	require.NoError(t, json.Unmarshal(data, &view))
	return view
}

// requestRefresh asks for an out-of-cycle view. The refresh snapshot is
// always Unknown, so it tells apart anything pushed before it.
func requestRefresh(t *testing.T, conn *websocket.Conn) View {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"refresh": true}))
	return readView(t, conn)
}

func TestHub_InitialViewUsesRefresh(t *testing.T) {
	var refreshes int32
	hub, conn := newTestHub(t, &refreshes)

	view := readView(t, conn)
	assert.Equal(t, models.StatusUnknown, view.Vehicle.Status)
	assert.Equal(t, fallback, view.Center)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_PublishOnlyOnChange(t *testing.T) {
	var refreshes int32
	hub, conn := newTestHub(t, &refreshes)
	readView(t, conn)

	active := Snapshot{State: models.ActiveState(fix, 1760875200)}
	hub.Publish(active)
	view := readView(t, conn)
	require.NotNil(t, view.Marker)
	assert.Equal(t, fix.Location(), view.Center)

	hub.Publish(active)
	assert.Equal(t, models.StatusUnknown, requestRefresh(t, conn).Vehicle.Status)
}

func TestHub_RefreshDoesNotHideChangeFromOthers(t *testing.T) {
	active := models.ActiveState(fix, 1760875200)
	store := &storeStub{state: active}
	hub, url := startHub(t, store.poll)

	hub.Publish(store.poll(context.Background()))
	first := dialHub(t, url)
	second := dialHub(t, url)
	require.NotNil(t, readView(t, first).Marker)
	require.NotNil(t, readView(t, second).Marker)

	store.set(models.OfflineState("Charging"))
	refreshed := requestRefresh(t, first)
	assert.Equal(t, "Charging", refreshed.Vehicle.Status)
	assert.Nil(t, refreshed.Marker)

	latest, ok := hub.Latest()
	require.True(t, ok)
	assert.Equal(t, models.StatusActive, latest.State.Status)

	hub.Publish(store.poll(context.Background()))
	view := readView(t, second)
	assert.Equal(t, "Charging", view.Vehicle.Status)
	assert.Nil(t, view.Marker)
}

func TestHub_RefreshedViewKeptForControls(t *testing.T) {
	store := &storeStub{state: models.OfflineState("Lunch Break")}
	hub, url := startHub(t, store.poll)
	hub.Publish(store.poll(context.Background()))

	conn := dialHub(t, url)
	readView(t, conn)

	store.set(models.OfflineState("Charging"))
	requestRefresh(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"controls": map[string]interface{}{"map_style": "light"},
	}))
	view := readView(t, conn)
	assert.Equal(t, StyleLight, view.Controls.MapStyle)
	assert.Equal(t, "Charging", view.Vehicle.Status)
}

func TestClient_EnqueueNeverBlocks(t *testing.T) {
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}

	assert.True(t, c.enqueue([]byte("a")))
	assert.False(t, c.enqueue([]byte("b")))

	<-c.send
	close(c.done)
	assert.False(t, c.enqueue([]byte("c")))
}

func TestHub_PublishSkipsStalledViewer(t *testing.T) {
	var refreshes int32
	hub, conn := newTestHub(t, &refreshes)
	readView(t, conn)

	idle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = upgrader.Upgrade(w, r, nil)
	}))
	defer idle.Close()

	// an unbuffered queue with no write pump never accepts a frame
	stalled := &client{
		conn:     dialHub(t, "ws"+strings.TrimPrefix(idle.URL, "http")),
		send:     make(chan []byte),
		done:     make(chan struct{}),
		controls: DefaultControls(),
	}
	hub.mu.Lock()
	hub.clients[stalled] = struct{}{}
	hub.mu.Unlock()

	start := time.Now()
	hub.Publish(Snapshot{State: models.OfflineState("Charging")})
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, "Charging", readView(t, conn).Vehicle.Status)
	assert.Equal(t, 1, hub.Clients())
}

func TestHub_PausedViewerGetsNothing(t *testing.T) {
	var refreshes int32
	hub, conn := newTestHub(t, &refreshes)
	readView(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"live": false, "refresh": true}))
	readView(t, conn)
	assert.Equal(t, int32(2), atomic.LoadInt32(&refreshes))

	hub.Publish(Snapshot{State: models.OfflineState("Charging")})
	assert.Equal(t, models.StatusUnknown, requestRefresh(t, conn).Vehicle.Status)

	hub.Publish(Snapshot{State: models.OfflineState("Lunch Break")})
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"live": true}))
	view := readView(t, conn)
	assert.Equal(t, "Lunch Break", view.Vehicle.Status)
}

func TestHub_ControlsAndLocationRerender(t *testing.T) {
	var refreshes int32
	hub, conn := newTestHub(t, &refreshes)
	readView(t, conn)
	hub.Publish(Snapshot{State: models.OfflineState("Lunch Break")})
	readView(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"controls": map[string]interface{}{"map_style": "satellite", "pitch": 87, "bearing": -3},
	}))
	view := readView(t, conn)
	assert.Equal(t, Controls{MapStyle: StyleSatellite, Pitch: 85, Bearing: 0, Live: true}, view.Controls)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"location": map[string]interface{}{"latitude": 25.43, "longitude": 81.84},
	}))
	view = readView(t, conn)
	assert.Equal(t, models.Location{Lat: 25.43, Lon: 81.84}, view.Center)
	assert.Equal(t, "Lunch Break", view.Vehicle.Status)
}

func TestHub_MalformedMessageIgnored(t *testing.T) {
	var refreshes int32
	_, conn := newTestHub(t, &refreshes)
	readView(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"refresh": true}))
	view := readView(t, conn)
	assert.Equal(t, models.StatusUnknown, view.Vehicle.Status)
}

func TestSameState(t *testing.T) {
	a := models.ActiveState(fix, 1)
	b := models.ActiveState(fix, 1)
	c := models.ActiveState(fix, 2)

	assert.True(t, sameState(a, b))
	assert.False(t, sameState(a, c))
	assert.False(t, sameState(a, models.OfflineState("Charging")))
	assert.True(t, sameState(models.OfflineState("Charging"), models.OfflineState("Charging")))
}
