package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
	"github.com/GriffinCanCode/notebridge/internal/bridge/bridgetest"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/monitoring"
)

func setup(t *testing.T) (*bridge.Invoker, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	inv := bridge.NewInvoker(bridge.NewRegistry(), nil).WithMetrics(metrics)
	router := gin.New()
	router.GET("/webview", NewHandler(inv, metrics, nil).HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return inv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/webview"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Outbound
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, TypeAttached, hello.Type)
	require.True(t, strings.HasPrefix(hello.ID, "conn_"), hello.ID)
	return conn
}

func TestRemoteRoundTrip(t *testing.T) {
	inv, url := setup(t)
	conn := dial(t, url)
	require.Eventually(t, inv.Attached, time.Second, 5*time.Millisecond)

	job := bridge.NewBuilder(false).Build("response = editor.isFocused;")
	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := inv.Call(ctx, job)
		done <- result{v, err}
	}()

	var msg Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeInject, msg.Type)
	assert.Equal(t, job.Script(), msg.Script)

	// A response for some other id is ignored
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeResponse, ID: "fn_other", Value: false}))
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeResponse, ID: bridgetest.JobID(msg.Script), Value: true}))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, true, r.value)
	case <-time.After(2 * time.Second):
		t.Fatal("call did not resolve")
	}
}

func TestPingAndUnknownMessages(t *testing.T) {
	_, url := setup(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeLog, Level: "warn", Message: "from the web view"}))
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypePing}))

	var msg Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypePong, msg.Type)

	require.NoError(t, conn.WriteJSON(Inbound{Type: "bogus"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "malformed message", msg.Message)
}

func TestCloseDetaches(t *testing.T) {
	inv, url := setup(t)
	conn := dial(t, url)
	require.Eventually(t, inv.Attached, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !inv.Attached() }, time.Second, 5*time.Millisecond)

	// Detached: calls return at once without registering
	v, err := inv.Call(context.Background(), bridge.NewBuilder(false).Build("1"))
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, inv.Registry().Len())
}

func TestNewerConnectionStaysAttached(t *testing.T) {
	inv, url := setup(t)
	first := dial(t, url)
	second := dial(t, url)

	require.NoError(t, first.Close())
	time.Sleep(50 * time.Millisecond)
	assert.True(t, inv.Attached())

	// Jobs go to the newer connection
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = inv.Call(ctx, bridge.NewBuilder(false).Build("1"))
	}()

	var msg Outbound
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, second.ReadJSON(&msg))
	assert.Equal(t, TypeInject, msg.Type)
}
