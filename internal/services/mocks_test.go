package services

import (
	"context"

	"github.com/ajramos/inboxpilot/internal/gmail"
	"github.com/stretchr/testify/mock"
	gmail_v1 "google.golang.org/api/gmail/v1"
)

// MockLLMProvider implements llm.Provider for testing
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Name() string {
	return "mock"
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockCacheService implements CacheService for testing
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetSummary(ctx context.Context, accountEmail, messageID string) (string, bool, error) {
	args := m.Called(ctx, accountEmail, messageID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCacheService) SaveSummary(ctx context.Context, accountEmail, messageID, summary string) error {
	return m.Called(ctx, accountEmail, messageID, summary).Error(0)
}

func (m *MockCacheService) GetReply(ctx context.Context, accountEmail, messageID string) (string, bool, error) {
	args := m.Called(ctx, accountEmail, messageID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockCacheService) SaveReply(ctx context.Context, accountEmail, messageID, reply string) error {
	return m.Called(ctx, accountEmail, messageID, reply).Error(0)
}

func (m *MockCacheService) Invalidate(ctx context.Context, accountEmail, messageID string) error {
	return m.Called(ctx, accountEmail, messageID).Error(0)
}

// MockMailClient implements MailClient for testing
type MockMailClient struct {
	mock.Mock
}

func (m *MockMailClient) ActiveAccountEmail(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockMailClient) ListInbox(ctx context.Context, maxResults int64) ([]*gmail_v1.Message, error) {
	args := m.Called(ctx, maxResults)
	refs, _ := args.Get(0).([]*gmail_v1.Message)
	return refs, args.Error(1)
}

func (m *MockMailClient) SearchInbox(ctx context.Context, query string, maxResults int64) ([]*gmail_v1.Message, error) {
	args := m.Called(ctx, query, maxResults)
	refs, _ := args.Get(0).([]*gmail_v1.Message)
	return refs, args.Error(1)
}

func (m *MockMailClient) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*gmail.Message)
	return msg, args.Error(1)
}

func (m *MockMailClient) GetMessagesParallel(ctx context.Context, ids []string, maxWorkers int) ([]*gmail.Message, error) {
	args := m.Called(ctx, ids, maxWorkers)
	msgs, _ := args.Get(0).([]*gmail.Message)
	return msgs, args.Error(1)
}

func (m *MockMailClient) TrashMessage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMailClient) SendReply(ctx context.Context, in gmail.ReplyInput) (*gmail.SentMessage, error) {
	args := m.Called(ctx, in)
	sent, _ := args.Get(0).(*gmail.SentMessage)
	return sent, args.Error(1)
}

// MockAIService implements AIService for testing
type MockAIService struct {
	mock.Mock
}

func (m *MockAIService) Available() bool {
	return m.Called().Bool(0)
}

func (m *MockAIService) Summarize(ctx context.Context, email EmailContent, options SummaryOptions) (*SummaryResult, error) {
	args := m.Called(ctx, email, options)
	res, _ := args.Get(0).(*SummaryResult)
	return res, args.Error(1)
}

func (m *MockAIService) DraftReply(ctx context.Context, email EmailContent, options SummaryOptions) (*SummaryResult, error) {
	args := m.Called(ctx, email, options)
	res, _ := args.Get(0).(*SummaryResult)
	return res, args.Error(1)
}

func (m *MockAIService) Forget(ctx context.Context, accountEmail, messageID string) error {
	return m.Called(ctx, accountEmail, messageID).Error(0)
}

func (m *MockAIService) Refine(ctx context.Context, req RefineRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockInboxService implements InboxService for testing
type MockInboxService struct {
	mock.Mock
}

func (m *MockInboxService) ListLatest(ctx context.Context) (*LatestResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*LatestResult)
	return res, args.Error(1)
}

func (m *MockInboxService) Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*DeleteResult)
	return res, args.Error(1)
}

func (m *MockInboxService) SendReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*ReplyResult)
	return res, args.Error(1)
}

func (m *MockInboxService) RefineReply(ctx context.Context, req RefineRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func refs(ids ...string) []*gmail_v1.Message {
	out := make([]*gmail_v1.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, &gmail_v1.Message{Id: id})
	}
	return out
}
