package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/inboxpilot/internal/render"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

const (
	// See https://developers.google.com/gmail/api/reference/quota
	quotaUnitsMessagesList = 5
	quotaUnitsMessagesGet  = 5
	quotaUnitsTrash        = 5
	quotaUnitsSend         = 100
	quotaUnitsGetProfile   = 1

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond

	maxRetries = 3
)

var (
	// ErrMessageNotFound is returned when Gmail reports 404 for a message
	ErrMessageNotFound = errors.New("gmail message not found")
	// ErrUnauthorized is returned when the OAuth token is missing, expired or revoked
	ErrUnauthorized = errors.New("gmail authorization required")
	// ErrNotInitialized is returned when the client has no service
	ErrNotInitialized = errors.New("gmail client not initialized")
)

// Client wraps the gmail.Service and provides convenience methods
type Client struct {
	Service *gmail.Service

	limiter *rate.Limiter

	mu           sync.Mutex
	profileEmail string
}

// NewClient creates a new Gmail client
func NewClient(service *gmail.Service) *Client {
	return &Client{
		Service: service,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
	}
}

// Message represents a Gmail message with extracted content
type Message struct {
	ID        string
	ThreadID  string
	From      string
	To        string
	Subject   string
	Snippet   string
	PlainText string
	Date      time.Time
	Labels    []string
}

// ReplyInput describes a plain-text reply
type ReplyInput struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

// SentMessage is the result of a send
type SentMessage struct {
	ID       string
	ThreadID string
}

func (c *Client) ready() error {
	if c == nil || c.Service == nil {
		return ErrNotInitialized
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rateLimitPerSecond, rateLimitBurst)
	}
	return nil
}

// do runs call under the quota limiter, retrying on 429 and 5xx.
func (c *Client) do(ctx context.Context, units int, call func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if werr := c.limiter.WaitN(ctx, units); werr != nil {
			return werr
		}
		err = call()
		if err == nil || !isRetryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return classify(err)
}

func isRetryable(err error) bool {
	if gerr, ok := errors.Cause(err).(*googleapi.Error); ok {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return false
}

// classify maps googleapi status codes to package errors
func classify(err error) error {
	if err == nil {
		return nil
	}
	if gerr, ok := errors.Cause(err).(*googleapi.Error); ok {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return errors.Wrap(ErrUnauthorized, gerr.Message)
		case http.StatusNotFound:
			return errors.Wrap(ErrMessageNotFound, gerr.Message)
		}
	}
	if strings.Contains(err.Error(), "invalid_grant") {
		return errors.Wrap(ErrUnauthorized, err.Error())
	}
	return err
}

// ActiveAccountEmail returns the authenticated account address (cached)
func (c *Client) ActiveAccountEmail(ctx context.Context) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	c.mu.Lock()
	cached := c.profileEmail
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var profile *gmail.Profile
	err := c.do(ctx, quotaUnitsGetProfile, func() (err error) {
		profile, err = c.Service.Users.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "unable to get gmail profile")
	}
	c.mu.Lock()
	c.profileEmail = profile.EmailAddress
	c.mu.Unlock()
	return profile.EmailAddress, nil
}

// ListInbox returns the ids of the newest INBOX messages
func (c *Client) ListInbox(ctx context.Context, maxResults int64) ([]*gmail.Message, error) {
	return c.list(ctx, "", maxResults)
}

// SearchInbox runs a Gmail query restricted to INBOX
func (c *Client) SearchInbox(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error) {
	return c.list(ctx, query, maxResults)
}

func (c *Client) list(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	call := c.Service.Users.Messages.List("me").LabelIds("INBOX").Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}

	var res *gmail.ListMessagesResponse
	err := c.do(ctx, quotaUnitsMessagesList, func() (err error) {
		res, err = call.Do()
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list inbox messages (q=%q)", query)
	}
	return res.Messages, nil
}

// GetMessage retrieves a message with its full payload and extracts content
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("message id is required")
	}

	var msg *gmail.Message
	err := c.do(ctx, quotaUnitsMessagesGet, func() (err error) {
		msg, err = c.Service.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting message %v from gmail", id)
	}
	return toMessage(msg), nil
}

func toMessage(msg *gmail.Message) *Message {
	m := &Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     extractHeader(msg, "From"),
		To:       extractHeader(msg, "To"),
		Subject:  extractHeader(msg, "Subject"),
		Snippet:  msg.Snippet,
		Date:     extractDate(msg),
		Labels:   extractLabels(msg),
	}
	m.PlainText = ExtractPlainText(msg)
	if strings.TrimSpace(m.PlainText) == "" {
		m.PlainText = msg.Snippet
	}
	return m
}

// GetMessagesParallel fetches messages concurrently with a bounded worker
// pool. The result has the same order as ids; failed fetches are nil.
func (c *Client) GetMessagesParallel(ctx context.Context, ids []string, maxWorkers int) ([]*Message, error) {
	if len(ids) == 0 {
		return []*Message{}, nil
	}
	if maxWorkers <= 0 || maxWorkers > 10 {
		maxWorkers = 10
	}

	out := make([]*Message, len(ids))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			msg, err := c.GetMessage(ctx, id)
			if err == nil {
				out[i] = msg
			}
		}(i, id)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// TrashMessage moves a message to trash
func (c *Client) TrashMessage(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.do(ctx, quotaUnitsTrash, func() error {
		_, err := c.Service.Users.Messages.Trash("me", id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "unable to trash message %v", id)
	}
	return nil
}

// SendReply sends a text/plain reply, keeping it in the original thread when
// ThreadID is set.
func (c *Client) SendReply(ctx context.Context, in ReplyInput) (*SentMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	msg := &gmail.Message{Raw: EncodeReply(in), ThreadId: in.ThreadID}

	var sent *gmail.Message
	err := c.do(ctx, quotaUnitsSend, func() (err error) {
		sent, err = c.Service.Users.Messages.Send("me", msg).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to send reply")
	}
	return &SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// ReplySubject prefixes "Re: " unless the subject already carries it
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

// EncodeReply builds the RFC 2822 message and returns it base64url encoded
func EncodeReply(in ReplyInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", in.To)
	fmt.Fprintf(&sb, "Subject: %s\r\n", ReplySubject(in.Subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(in.Body)
	return base64.RawURLEncoding.EncodeToString([]byte(sb.String()))
}

// Helper functions
func extractHeader(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, header := range msg.Payload.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func extractDate(msg *gmail.Message) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate)
	}
	dateStr := extractHeader(msg, "Date")
	if t, err := time.Parse(time.RFC1123Z, dateStr); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC1123, dateStr); err == nil {
		return t
	}
	return time.Time{}
}

func extractLabels(msg *gmail.Message) []string {
	if msg.LabelIds == nil {
		return []string{}
	}
	return msg.LabelIds
}

// ExtractPlainText extracts plain text content from a Gmail message. A
// text/plain part wins; HTML-only messages are rendered to text.
func ExtractPlainText(msg *gmail.Message) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	if text := extractTextFromPart(msg.Payload, "text/plain"); text != "" {
		return text
	}
	htmlBody := extractTextFromPart(msg.Payload, "text/html")
	if htmlBody == "" {
		return ""
	}
	text, err := render.HTMLToText(htmlBody)
	if err != nil {
		return ""
	}
	return text
}

func extractTextFromPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}

	if part.Body != nil && part.Body.Data != "" && strings.EqualFold(part.MimeType, mimeType) {
		// the API has already undone the Content-Transfer-Encoding
		data, err := decodeBody(part.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}

	for _, p := range part.Parts {
		if text := extractTextFromPart(p, mimeType); text != "" {
			return text
		}
	}
	return ""
}

// decodeBody accepts padded and unpadded base64url
func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
