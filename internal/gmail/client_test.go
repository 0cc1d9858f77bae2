package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewClient(svc)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func fullMessage(id, from, subject, body string) *gmail.Message {
	return &gmail.Message{
		Id:       id,
		ThreadId: "t-" + id,
		Snippet:  "snippet " + id,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "from", Value: from},
				{Name: "SUBJECT", Value: subject},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>x</p>"))}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))}},
			},
		},
	}
}

func TestNewClient(t *testing.T) {
	service := &gmail.Service{}
	client := NewClient(service)

	assert.NotNil(t, client)
	assert.Equal(t, service, client.Service)
	assert.Empty(t, client.profileEmail)
}

func TestClient_NotInitialized(t *testing.T) {
	var nilClient *Client
	_, err := nilClient.ActiveAccountEmail(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)

	c := &Client{}
	_, err = c.ListInbox(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, c.TrashMessage(context.Background(), "x"), ErrNotInitialized)
}

func TestClient_ActiveAccountEmail_Caching(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, &gmail.Profile{EmailAddress: "me@example.com"})
	})

	for i := 0; i < 3; i++ {
		email, err := c.ActiveAccountEmail(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "me@example.com", email)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_ListInbox(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages"))
		assert.Equal(t, "INBOX", r.URL.Query().Get("labelIds"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Empty(t, r.URL.Query().Get("q"))
		writeJSON(w, &gmail.ListMessagesResponse{Messages: []*gmail.Message{{Id: "a"}, {Id: "b"}}})
	})

	msgs, err := c.ListInbox(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Id)
}

func TestClient_SearchInbox(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from:jane", r.URL.Query().Get("q"))
		writeJSON(w, &gmail.ListMessagesResponse{})
	})

	msgs, err := c.SearchInbox(context.Background(), "from:jane", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClient_GetMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(w, fullMessage("m1", "Jane <jane@example.com>", "Invoice", "Please pay"))
	})

	msg, err := c.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "t-m1", msg.ThreadID)
	assert.Equal(t, "Jane <jane@example.com>", msg.From)
	assert.Equal(t, "Invoice", msg.Subject)
	assert.Equal(t, "Please pay", msg.PlainText)
}

func TestClient_GetMessage_EmptyID(t *testing.T) {
	c := NewClient(&gmail.Service{})
	_, err := c.GetMessage(context.Background(), "  ")
	assert.Error(t, err)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrMessageNotFound},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.code)
				_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, tt.code)
			})
			_, err := c.GetMessage(context.Background(), "x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_RetriesTooManyRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"slow down"}}`))
			return
		}
		writeJSON(w, &gmail.Message{Id: "x"})
	})

	require.NoError(t, c.TrashMessage(context.Background(), "x"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_SendReply(t *testing.T) {
	var got gmail.Message
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages/send"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, &gmail.Message{Id: "sent1", ThreadId: got.ThreadId})
	})

	sent, err := c.SendReply(context.Background(), ReplyInput{
		To: "jane@example.com", Subject: "Invoice", Body: "Paid.", ThreadID: "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, &SentMessage{ID: "sent1", ThreadID: "t1"}, sent)

	raw, err := base64.RawURLEncoding.DecodeString(got.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "To: jane@example.com\r\n")
	assert.Contains(t, string(raw), "Subject: Re: Invoice\r\n")
	assert.True(t, strings.HasSuffix(string(raw), "\r\n\r\nPaid."))
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Hello", ReplySubject("Hello"))
	assert.Equal(t, "RE: Hello", ReplySubject("RE: Hello"))
	assert.Equal(t, "Re: ", ReplySubject(""))
}

func TestExtractHeader_CaseInsensitive(t *testing.T) {
	msg := fullMessage("1", "a@b.c", "Hi", "")
	assert.Equal(t, "a@b.c", extractHeader(msg, "From"))
	assert.Equal(t, "Hi", extractHeader(msg, "subject"))
	assert.Empty(t, extractHeader(msg, "Cc"))
	assert.Empty(t, extractHeader(&gmail.Message{}, "From"))
	assert.Empty(t, extractHeader(nil, "From"))
}

func TestExtractPlainText(t *testing.T) {
	t.Run("decoded body kept verbatim", func(t *testing.T) {
		body := "See https://shop.example.com/?ref=CAFE&x=1\nTotal=3D dollars, café"
		msg := &gmail.Message{Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))},
		}}
		got := ExtractPlainText(msg)
		assert.Equal(t, body, got)
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("unpadded", func(t *testing.T) {
		msg := &gmail.Message{Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("hi"))},
		}}
		assert.Equal(t, "hi", ExtractPlainText(msg))
	})

	t.Run("html only", func(t *testing.T) {
		msg := &gmail.Message{Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>Hello <b>there</b></p>"))},
		}}
		assert.Equal(t, "Hello there", ExtractPlainText(msg))
	})

	t.Run("plain preferred over html", func(t *testing.T) {
		msg := &gmail.Message{Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>rich</p>"))}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("plain"))}},
			},
		}}
		assert.Equal(t, "plain", ExtractPlainText(msg))
	})

	t.Run("nil payload", func(t *testing.T) {
		assert.Empty(t, ExtractPlainText(&gmail.Message{}))
	})
}

func TestToMessage_SnippetFallback(t *testing.T) {
	msg := &gmail.Message{Id: "1", Snippet: "short", Payload: &gmail.MessagePart{MimeType: "text/html"}}
	assert.Equal(t, "short", toMessage(msg).PlainText)
}
