package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/common"
)

func dialWS(t *testing.T, f *serverFixture, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(f.ts.URL, "http", "ws", 1) + "/api/ws"
	header := http.Header{}
	header.Set(common.AccessTokenHeaderName, common.AccessTokenScheme+" "+token)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func TestWebsocket_RequiresAuth(t *testing.T) {
	f := newServerFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(f.ts.URL, "http", "ws", 1) + "/api/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestWebsocket_DeliversChangeFrames(t *testing.T) {
	f := newServerFixture(t)
	tokens := f.registerAndLogin(t)

	conn := dialWS(t, f, tokens.AccessToken)

	_, err := f.ds.Create(context.Background(), tokens.UserID, samplePayload())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var frame api.ChangeFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, api.ChangeKindCreated, frame.Kind)
	assert.Equal(t, testSyncID, frame.DocumentID)
	require.NotNil(t, frame.Document)
	assert.Equal(t, "passport", frame.Document.Document.Title)
}

func TestWebsocket_OtherUsersDoNotReceiveFrames(t *testing.T) {
	f := newServerFixture(t)
	tokens := f.registerAndLogin(t)

	conn := dialWS(t, f, tokens.AccessToken)

	_, err := f.ds.Create(context.Background(), "someone-else", samplePayload())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, _, err = conn.Read(ctx)
	assert.Error(t, err, "no frame should arrive for another user's change")
}

func TestHub_CloseAllDisconnectsClients(t *testing.T) {
	f := newServerFixture(t)
	tokens := f.registerAndLogin(t)

	conn := dialWS(t, f, tokens.AccessToken)

	f.hub.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
}
