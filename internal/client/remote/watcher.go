package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/client/sync"
	"github.com/mihailsb/docsync/internal/common"
)

// Watch opens the websocket change subscription. One frame per remote
// mutation; the connection closes when ctx is done. The realtime channel
// owns reconnection, so a broken subscription is only reported, never
// retried here.
func (c *Client) Watch(ctx context.Context, _ string) (<-chan sync.ChangeEvent, <-chan error, error) {
	access, _ := c.tokens()
	if access == "" {
		return nil, nil, common.ErrUnauthorized
	}

	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/ws"
	header := http.Header{}
	header.Set(common.AccessTokenHeaderName, common.AccessTokenScheme+" "+access)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrServerUnavailable, err)
	}

	events := make(chan sync.ChangeEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("reading change frame: %w", err)
				}
				return
			}

			var frame api.ChangeFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				errs <- fmt.Errorf("decoding change frame: %w", err)
				return
			}

			ev := sync.ChangeEvent{
				Type:       changeType(frame.Kind),
				DocumentID: frame.DocumentID,
				Timestamp:  frame.Timestamp,
			}
			if frame.Document != nil {
				ev.Document = frame.Document.ToDocument(c.CurrentUserID())
				ev.Attachments = frame.Document.ToAttachments()
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs, nil
}

func changeType(k api.ChangeKind) sync.ChangeType {
	switch k {
	case api.ChangeKindCreated:
		return sync.ChangeCreated
	case api.ChangeKindDeleted:
		return sync.ChangeDeleted
	default:
		return sync.ChangeUpdated
	}
}
