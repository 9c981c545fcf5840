// Package graphadapter implements the provider.Adapter contract over the
// Microsoft Graph REST API (spec §4.E), grounded on BbangMxn-worker's Outlook
// provider (adapter/out/provider/outlook/worker_outlook.go) for the HTTP
// shape — here the OAuth flow is client-credentials (app-only, no signed-in
// user) instead of the authorization-code flow that repo uses.
package graphadapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/mail-archiver/mail-archiver/internal/logging"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Adapter is a provider.Adapter backed by an app-only Graph client.
type Adapter struct {
	account *models.MailAccount
	client  *http.Client
	log     *logging.Logger
}

func New(account *models.MailAccount) *Adapter {
	return &Adapter{
		account: account,
		client:  newTokenClient(account),
		log:     logging.New("graph"),
	}
}

func newTokenClient(account *models.MailAccount) *http.Client {
	cfg := &clientcredentials.Config{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", account.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return cfg.Client(context.Background())
}

// reconnect discards the cached OAuth2 token by rebuilding the client,
// standing in for IMAP's "drop and re-dial" between retry attempts.
func (a *Adapter) reconnect() {
	a.client = newTokenClient(a.account)
}

func (a *Adapter) Close() error { return nil }

// TestConnection exercises the token acquisition and a cheap read, per the
// "TestConnection names this for IMAP; supplemented here for Graph" note.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var resp struct {
		ID string `json:"id"`
	}
	return a.get(ctx, fmt.Sprintf("/users/%s", url.PathEscape(a.account.Email)), &resp)
}

func (a *Adapter) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, graphBaseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, result)
}

func (a *Adapter) getRaw(ctx context.Context, fullURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	return a.do(req, result)
}

func (a *Adapter) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphBaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, result)
}

func (a *Adapter) postBytes(ctx context.Context, path string, contentType string, body []byte, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return a.do(req, result)
}

func (a *Adapter) patch(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, graphBaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, nil)
}

func (a *Adapter) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, graphBaseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, nil)
}

func (a *Adapter) do(req *http.Request, result any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("graph request failed (token/transport), retrying later: %v", err)
		return provider.Wrap(provider.KindTransient, fmt.Errorf("graph request %s: %w", req.URL.Path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		a.log.Warn("transient graph error on %s: %d %s", req.URL.Path, resp.StatusCode, string(body))
		return provider.Wrap(provider.KindTransient, fmt.Errorf("graph %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return provider.Wrap(provider.KindPermanentPerMessage, fmt.Errorf("graph %d: %s", resp.StatusCode, string(body)))
	}
	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
