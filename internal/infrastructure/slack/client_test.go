package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"remindme/internal/domain/gateway"
	"remindme/internal/pkg/logger"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlack serves canned Web API responses and records the form of each call.
type fakeSlack struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string][]map[string]string
}

func newFakeSlack(t *testing.T) (*fakeSlack, *Client) {
	t.Helper()
	f := &fakeSlack{
		responses: map[string]string{
			"chat.getPermalink":           `{"ok":true,"channel":"C1","permalink":"https://acme.slack.com/archives/C1/p1620000000000100"}`,
			"conversations.history":       `{"ok":true,"messages":[{"type":"message","user":"U-author","text":"ship it","ts":"1620000000.000100"}]}`,
			"users.info":                  `{"ok":true,"user":{"id":"U-author","name":"alice","real_name":"Alice Liddell","profile":{"display_name":"alice.l"}}}`,
			"conversations.info":          `{"ok":true,"channel":{"id":"C1","name":"general"}}`,
			"conversations.open":          `{"ok":true,"channel":{"id":"D1"}}`,
			"chat.scheduleMessage":        `{"ok":true,"channel":"D1","scheduled_message_id":"Q1234"}`,
			"chat.deleteScheduledMessage": `{"ok":true}`,
			"chat.postEphemeral":          `{"ok":true,"message_ts":"1620000001.000200"}`,
		},
		calls: make(map[string][]map[string]string),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/")
		form := make(map[string]string)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var fields map[string]json.RawMessage
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
			for k, raw := range fields {
				var s string
				if json.Unmarshal(raw, &s) == nil {
					form[k] = s
				} else {
					form[k] = string(raw)
				}
			}
		} else {
			assert.NoError(t, r.ParseForm())
			for k := range r.Form {
				form[k] = r.Form.Get(k)
			}
		}

		f.mu.Lock()
		f.calls[method] = append(f.calls[method], form)
		body, ok := f.responses[method]
		f.mu.Unlock()

		if !ok {
			body = `{"ok":false,"error":"unknown_method"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("xoxb-test", time.Second, logger.Nop(), WithAPIURL(server.URL+"/"))
	require.NoError(t, err)
	return f, client
}

func (f *fakeSlack) respond(method, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = body
}

func (f *fakeSlack) callsTo(method string) []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

var testRef = gateway.ContentRef{ChannelID: "C1", MessageTs: "1620000000.000100"}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", time.Second, logger.Nop())
	assert.Error(t, err)

	_, err = NewClient("xoxb-test", 0, logger.Nop())
	assert.Error(t, err)
}

func TestResolveContent(t *testing.T) {
	f, client := newFakeSlack(t)

	content, err := client.ResolveContent(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, &gateway.Content{
		Permalink:      "https://acme.slack.com/archives/C1/p1620000000000100",
		AuthorID:       "U-author",
		AuthorName:     "alice.l",
		ChannelID:      "C1",
		ChannelName:    "general",
		MessageTs:      "1620000000.000100",
		MessageContent: "ship it",
	}, content)

	history := f.callsTo("conversations.history")
	require.Len(t, history, 1)
	assert.Equal(t, "C1", history[0]["channel"])
	assert.Equal(t, "1620000000.000100", history[0]["latest"])
	assert.Equal(t, "1", history[0]["limit"])
}

func TestResolveContentMissingMessage(t *testing.T) {
	t.Run("permalink lookup fails", func(t *testing.T) {
		f, client := newFakeSlack(t)
		f.respond("chat.getPermalink", `{"ok":false,"error":"message_not_found"}`)

		_, err := client.ResolveContent(context.Background(), testRef)
		assert.ErrorIs(t, err, gateway.ErrContentNotFound)
		assert.Empty(t, f.callsTo("conversations.history"))
	})

	t.Run("history has a different message", func(t *testing.T) {
		f, client := newFakeSlack(t)
		f.respond("conversations.history", `{"ok":true,"messages":[{"type":"message","user":"U2","text":"older","ts":"1619999999.000001"}]}`)

		_, err := client.ResolveContent(context.Background(), testRef)
		assert.ErrorIs(t, err, gateway.ErrContentNotFound)
	})

	t.Run("other platform errors are passed through", func(t *testing.T) {
		f, client := newFakeSlack(t)
		f.respond("chat.getPermalink", `{"ok":false,"error":"invalid_auth"}`)

		_, err := client.ResolveContent(context.Background(), testRef)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gateway.ErrContentNotFound)
		assert.Contains(t, err.Error(), "invalid_auth")
	})
}

func TestResolveContentNameLookupsAreBestEffort(t *testing.T) {
	f, client := newFakeSlack(t)
	f.respond("users.info", `{"ok":false,"error":"user_not_found"}`)
	f.respond("conversations.info", `{"ok":false,"error":"missing_scope"}`)

	content, err := client.ResolveContent(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "U-author", content.AuthorID)
	assert.Empty(t, content.AuthorName)
	assert.Empty(t, content.ChannelName)
}

func TestScheduleDelivery(t *testing.T) {
	f, client := newFakeSlack(t)

	handle, err := client.ScheduleDelivery(context.Background(), "U1", "Here's your reminder: x", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "Q1234", handle)

	open := f.callsTo("conversations.open")
	require.Len(t, open, 1)
	assert.Equal(t, "U1", open[0]["users"])

	scheduled := f.callsTo("chat.scheduleMessage")
	require.Len(t, scheduled, 1)
	assert.Equal(t, "D1", scheduled[0]["channel"])
	assert.Equal(t, "1700000000", scheduled[0]["post_at"])
	assert.Equal(t, "Here's your reminder: x", scheduled[0]["text"])
}

func TestScheduleDeliveryRequiresHandle(t *testing.T) {
	f, client := newFakeSlack(t)
	f.respond("chat.scheduleMessage", `{"ok":true,"channel":"D1","post_at":1700000000}`)

	handle, err := client.ScheduleDelivery(context.Background(), "U1", "text", 1700000000)
	assert.Empty(t, handle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduled_message_id")
}

func TestScheduleDeliveryFailure(t *testing.T) {
	f, client := newFakeSlack(t)
	f.respond("chat.scheduleMessage", `{"ok":false,"error":"time_in_past"}`)

	handle, err := client.ScheduleDelivery(context.Background(), "U1", "text", 1)
	assert.Empty(t, handle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time_in_past")
}

func TestCancelDelivery(t *testing.T) {
	f, client := newFakeSlack(t)

	require.NoError(t, client.CancelDelivery(context.Background(), "U1", "Q1234"))

	deleted := f.callsTo("chat.deleteScheduledMessage")
	require.Len(t, deleted, 1)
	assert.Equal(t, "D1", deleted[0]["channel"])
	assert.Equal(t, "Q1234", deleted[0]["scheduled_message_id"])

	f.respond("chat.deleteScheduledMessage", `{"ok":false,"error":"invalid_scheduled_message_id"}`)
	err := client.CancelDelivery(context.Background(), "U1", "Q1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_scheduled_message_id")
}

func TestCancelDeliveryFailsWhenDMCannotBeOpened(t *testing.T) {
	f, client := newFakeSlack(t)
	f.respond("conversations.open", `{"ok":false,"error":"user_not_found"}`)

	err := client.CancelDelivery(context.Background(), "U1", "Q1234")
	require.Error(t, err)
	assert.Empty(t, f.callsTo("chat.deleteScheduledMessage"))
}

func TestOpenReminderModal(t *testing.T) {
	f, client := newFakeSlack(t)
	f.respond("views.open", `{"ok":true,"view":{"id":"V1"}}`)

	require.NoError(t, client.OpenReminderModal(context.Background(), "trigger-1", testRef))

	calls := f.callsTo("views.open")
	require.Len(t, calls, 1)
	assert.Equal(t, "trigger-1", calls[0]["trigger_id"])

	var view struct {
		CallbackID      string `json:"callback_id"`
		PrivateMetadata string `json:"private_metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(calls[0]["view"]), &view))
	assert.Equal(t, SubmissionCallbackID, view.CallbackID)
	assert.JSONEq(t, `{"channel_id":"C1","message_id":"1620000000.000100"}`, view.PrivateMetadata)
}

func TestPostEphemeral(t *testing.T) {
	f, client := newFakeSlack(t)

	require.NoError(t, client.PostEphemeral(context.Background(), "C1", "U1", "done"))

	calls := f.callsTo("chat.postEphemeral")
	require.Len(t, calls, 1)
	assert.Equal(t, "C1", calls[0]["channel"])
	assert.Equal(t, "U1", calls[0]["user"])
	assert.Equal(t, "done", calls[0]["text"])
}
