// Package mailinglist keeps the marketing audience in sync with new accounts.
// Members are upserted by subscriber hash, then tagged; failed syncs are parked
// in an outbox that a cron job drains.
package mailinglist

import (
	"context"
	"crypto/md5" //nolint:gosec // the audience API identifies members by md5
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sendgrid/rest"

	"github.com/trezcool/darasa/core"
)

const (
	maxOutboxAttempts = 10
	outboxBatchSize   = 50
)

type (
	// Entry is a parked sync.
	Entry struct {
		Email     string    `db:"email"`
		Attempts  int       `db:"attempts"`
		LastError string    `db:"last_error"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	Outbox interface {
		// Enqueue parks email, bumping its attempts if it is already parked.
		Enqueue(ctx context.Context, email string, cause error) error
		Pending(ctx context.Context, maxAttempts, limit int) ([]Entry, error)
		Remove(ctx context.Context, email string) error
	}

	// APIError is a non-2xx answer of the audience API.
	APIError struct {
		StatusCode int
		Body       string
	}

	Client struct {
		baseURL    string
		apiKey     string
		audienceID string
		tag        string
		retryCron  string

		http     *rest.Client
		outbox   Outbox
		logger   core.Logger
		attempts uint
		delay    time.Duration
		cron     *cron.Cron
	}

	Option func(*Client)
)

func (e *APIError) Error() string {
	return fmt.Sprintf("audience API: status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// WithBaseURL overrides the API root derived from the key's data center.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = &rest.Client{HTTPClient: hc} } }

func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

func NewClient(conf core.MailingListConfig, outbox Outbox, logger core.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     conf.APIKey,
		audienceID: conf.AudienceID,
		tag:        conf.Tag,
		retryCron:  conf.RetryCron,
		http:       &rest.Client{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		outbox:     outbox,
		logger:     logger,
		attempts:   3,
		delay:      500 * time.Millisecond,
	}
	// keys look like "<secret>-us3": the suffix is the data center
	if i := strings.LastIndex(conf.APIKey, "-"); i >= 0 && i < len(conf.APIKey)-1 {
		c.baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", conf.APIKey[i+1:])
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled is false without credentials; every call is then a no-op.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.audienceID != "" && c.baseURL != ""
}

// SubscriberHash is the member id: md5 of the lowercased email.
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func (c *Client) memberURL(email string) string {
	return fmt.Sprintf("%s/lists/%s/members/%s", c.baseURL, c.audienceID, SubscriberHash(email))
}

func (c *Client) send(ctx context.Context, method rest.Method, url string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req := rest.Request{
		Method:  method,
		BaseURL: url,
		Headers: map[string]string{
			"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte("anystring:"+c.apiKey)),
			"Content-Type":  "application/json",
		},
		Body: data,
	}
	resp, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: resp.Body}
		if !apiErr.Temporary() {
			return retry.Unrecoverable(apiErr)
		}
		return apiErr
	}
	return nil
}

func (c *Client) do(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Sync upserts the member then tags it. A failed tag is logged only.
func (c *Client) Sync(ctx context.Context, email string) error {
	if !c.Enabled() {
		return nil
	}
	email = core.CleanString(email, true /* lower */)

	member := map[string]string{"email_address": email, "status_if_new": "subscribed"}
	if err := c.do(ctx, func() error { return c.send(ctx, rest.Put, c.memberURL(email), member) }); err != nil {
		return errors.Wrap(err, "upserting member")
	}

	if c.tag != "" {
		tags := map[string]interface{}{"tags": []map[string]string{{"name": c.tag, "status": "active"}}}
		if err := c.do(ctx, func() error { return c.send(ctx, rest.Post, c.memberURL(email)+"/tags", tags) }); err != nil {
			c.logger.Warn(fmt.Sprintf("mailinglist: tagging %s: %v", email, err), err)
		}
	}
	return nil
}

// Subscribe syncs email, parking it in the outbox when the sync fails.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	err := c.Sync(ctx, email)
	if err == nil {
		return nil
	}
	if c.outbox != nil {
		if qErr := c.outbox.Enqueue(ctx, core.CleanString(email, true /* lower */), err); qErr != nil {
			c.logger.Error(fmt.Sprintf("mailinglist: parking %s: %v", email, qErr), qErr)
		}
	}
	return err
}

// RetryPending replays parked syncs and returns how many succeeded.
func (c *Client) RetryPending(ctx context.Context) (int, error) {
	if !c.Enabled() || c.outbox == nil {
		return 0, nil
	}
	entries, err := c.outbox.Pending(ctx, maxOutboxAttempts, outboxBatchSize)
	if err != nil {
		return 0, err
	}

	var synced int
	for _, e := range entries {
		if err := c.Sync(ctx, e.Email); err != nil {
			if qErr := c.outbox.Enqueue(ctx, e.Email, err); qErr != nil {
				return synced, qErr
			}
			continue
		}
		if err := c.outbox.Remove(ctx, e.Email); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

// Start schedules RetryPending on the configured cron spec.
func (c *Client) Start() error {
	if !c.Enabled() || c.outbox == nil || c.retryCron == "" {
		return nil
	}
	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.retryCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := c.RetryPending(ctx)
		if err != nil {
			c.logger.Error(fmt.Sprintf("mailinglist: retrying outbox: %v", err), err)
			return
		}
		if n > 0 {
			c.logger.Info(fmt.Sprintf("mailinglist: synced %d parked members", n))
		}
	})
	if err != nil {
		return errors.Wrap(err, "scheduling outbox retries")
	}
	c.cron.Start()
	return nil
}

// Stop waits for a running retry to finish.
func (c *Client) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}
