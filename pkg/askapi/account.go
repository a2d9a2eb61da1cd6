package askapi

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kcaldas/copilot/pkg/events"
	"github.com/kcaldas/copilot/pkg/logging"
)

// Account queries and ends the user's login with the service.
type Account struct {
	client    *resty.Client
	baseURL   string
	loginURL  string
	publisher events.Publisher
	logger    logging.Logger
}

// NewAccount creates an Account. baseURL hosts /logout and /getUserInfo;
// loginURL is the page opened in the browser to log in.
func NewAccount(baseURL, loginURL string, publisher events.Publisher, client *resty.Client) *Account {
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	if publisher == nil {
		publisher = &events.NoOpEventBus{}
	}
	return &Account{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		loginURL:  loginURL,
		publisher: publisher,
		logger:    logging.NewAPILogger("account"),
	}
}

// LoginURL returns the browser URL that binds sessionID to this machine.
func (a *Account) LoginURL(sessionID, machineID, userID, env string) string {
	query := url.Values{}
	query.Set("sessionId", sessionID)
	query.Set("machineId", machineID)
	query.Set("userId", userID)
	query.Set("device", env)
	return a.loginURL + "?" + query.Encode()
}

// Logout ends the session of token and publishes LoggedOut on success.
func (a *Account) Logout(ctx context.Context, token string) error {
	if _, err := a.get(ctx, a.baseURL+"/logout", token); err != nil {
		return err
	}
	events.Emit(a.publisher, events.LoginStateEvent{State: events.LoggedOut})
	return nil
}

// QueryUser checks whether token is logged in and publishes the outcome.
// A transport failure publishes nothing.
func (a *Account) QueryUser(ctx context.Context, token string) (bool, error) {
	_, err := a.get(ctx, a.baseURL+"/getUserInfo", token)
	switch {
	case err == nil:
		events.Emit(a.publisher, events.LoginStateEvent{State: events.LoginSucceeded})
		return true, nil
	case errors.Is(err, ErrOperationFailed):
		events.Emit(a.publisher, events.LoginStateEvent{State: events.LoginFailed})
		return false, nil
	default:
		return false, err
	}
}

func (a *Account) get(ctx context.Context, url, token string) (*envelope, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader(CodeTokenHeader, token).
		Get(url)
	return decodeEnvelope(a.logger, url, resp, err)
}
