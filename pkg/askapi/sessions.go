package askapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/logging"
)

const codeSuccess = 200

// envelope is the response shape of every non-streaming call.
type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

// list returns data.list, or nil when data has another shape.
func (e *envelope) list() []json.RawMessage {
	var data struct {
		List []json.RawMessage `json:"list"`
	}
	_ = json.Unmarshal(e.Data, &data)
	return data.List
}

type sessionItem struct {
	TalkID     string `json:"talkId"`
	CreateTime string `json:"createTime"`
	Prompt     string `json:"prompt"`
}

type messageItem struct {
	Prompt     string `json:"prompt"`
	OutputText string `json:"outputText"`
}

// SessionEndpoints are the URLs of the chat-history service.
type SessionEndpoints struct {
	Create   string
	List     string
	Messages string
	Delete   string
}

// DefaultSessionEndpoints derives the endpoints from the service base URL.
func DefaultSessionEndpoints(base string) SessionEndpoints {
	base = strings.TrimRight(base, "/")
	return SessionEndpoints{
		Create:   base + "/add",
		List:     base + "/list",
		Messages: base + "/detail",
		Delete:   base + "/delete",
	}
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithRestyClient replaces the underlying resty client.
func WithRestyClient(client *resty.Client) SessionOption {
	return func(s *SessionStore) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSessionPublisher publishes create and delete outcomes on p.
func WithSessionPublisher(p events.Publisher) SessionOption {
	return func(s *SessionStore) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSessionLogger injects a custom logger implementation.
func WithSessionLogger(logger logging.Logger) SessionOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SessionStore performs create, list and delete calls against the remote
// chat-history service. Calls are not retried.
type SessionStore struct {
	client    *resty.Client
	endpoints SessionEndpoints
	publisher events.Publisher
	logger    logging.Logger
}

// NewSessionStore creates a store for endpoints.
func NewSessionStore(endpoints SessionEndpoints, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		client:    resty.New().SetTimeout(30 * time.Second),
		endpoints: endpoints,
		publisher: &events.NoOpEventBus{},
		logger:    logging.NewAPILogger("sessions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession registers talkID with its first prompt.
func (s *SessionStore) CreateSession(ctx context.Context, token, prompt, talkID string) error {
	body, err := NewSessionBody(prompt, talkID)
	if err != nil {
		return err
	}
	_, err = s.post(ctx, s.endpoints.Create, token, body)
	events.Emit(s.publisher, events.SessionCreatedEvent{TalkID: talkID, Success: err == nil})
	return err
}

// ListSessions returns one page of the user's conversations.
func (s *SessionStore) ListSessions(ctx context.Context, token string, pageNumber, pageSize int) ([]SessionRecord, error) {
	env, err := s.get(ctx, s.endpoints.List, token, map[string]string{
		"pageNum":  strconv.Itoa(pageNumber),
		"pageSize": strconv.Itoa(pageSize),
	})
	if err != nil {
		return nil, err
	}

	list := env.list()
	records := make([]SessionRecord, 0, len(list))
	for _, raw := range list {
		var item sessionItem
		_ = json.Unmarshal(raw, &item)
		records = append(records, SessionRecord{TalkID: item.TalkID, CreatedTime: item.CreateTime, Prompt: item.Prompt})
	}
	return records, nil
}

// ListMessages returns one page of the exchanges of talkID.
func (s *SessionStore) ListMessages(ctx context.Context, token string, pageNumber, pageSize int, talkID string) ([]MessageRecord, error) {
	env, err := s.get(ctx, s.endpoints.Messages, token, map[string]string{
		"pageNum":  strconv.Itoa(pageNumber),
		"pageSize": strconv.Itoa(pageSize),
		"talkId":   talkID,
	})
	if err != nil {
		return nil, err
	}

	list := env.list()
	records := make([]MessageRecord, 0, len(list))
	for _, raw := range list {
		var item messageItem
		_ = json.Unmarshal(raw, &item)
		records = append(records, MessageRecord{Input: item.Prompt, Output: item.OutputText})
	}
	return records, nil
}

// DeleteSessions removes the conversations in talkIDs.
func (s *SessionStore) DeleteSessions(ctx context.Context, token string, talkIDs []string) error {
	body, err := DeleteSessionsBody(talkIDs)
	if err != nil {
		return err
	}
	_, err = s.post(ctx, s.endpoints.Delete, token, body)
	events.Emit(s.publisher, events.SessionDeletedEvent{TalkIDs: talkIDs, Success: err == nil})
	return err
}

func (s *SessionStore) post(ctx context.Context, url, token string, body []byte) (*envelope, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(CodeTokenHeader, token).
		SetBody(body).
		Post(url)
	return s.decode(url, resp, err)
}

func (s *SessionStore) get(ctx context.Context, url, token string, query map[string]string) (*envelope, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader(CodeTokenHeader, token).
		SetQueryParams(query).
		Get(url)
	return s.decode(url, resp, err)
}

func (s *SessionStore) decode(url string, resp *resty.Response, err error) (*envelope, error) {
	return decodeEnvelope(s.logger, url, resp, err)
}

func decodeEnvelope(logger logging.Logger, url string, resp *resty.Response, err error) (*envelope, error) {
	if err != nil {
		logger.Error("request failed", "url", url, "error", err)
		return nil, &TransportError{URL: url, Err: err}
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() > 299 {
		logger.Error("request failed", "url", url, "status", resp.StatusCode())
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode(), Body: truncate(strings.TrimSpace(resp.String()), 512)}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		logger.Warn("response is not an envelope", "url", url, "error", err)
		return nil, fmt.Errorf("%w: decoding response from %s: %v", ErrOperationFailed, url, err)
	}
	if env.Code != codeSuccess {
		logger.Warn("operation failed", "url", url, "code", env.Code)
		return nil, fmt.Errorf("%w: %s answered code %d", ErrOperationFailed, url, env.Code)
	}
	return &env, nil
}
