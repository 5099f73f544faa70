package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/warpmetrics/warp-coder/internal/logger"
	warperrors "github.com/warpmetrics/warp-coder/pkg/errors"
)

// httpTimeout bounds every ledger request.
const httpTimeout = 15 * time.Second

// Client is the typed client for the append-only event store. All state
// the daemon relies on lives behind it: events are appended in atomic
// batches and the next pending work is discovered by querying the same
// event log back.
type Client struct {
	baseURL  string
	apiKey   string
	disabled bool
	log      *logger.Logger

	// query does GET/PUT with transport-level retries; those calls are
	// idempotent. Event batches go through post, which never retries:
	// the scheduler re-observes un-advanced state on the next poll
	// instead.
	query *http.Client
	post  *http.Client
}

// NewClient constructs a ledger client. An empty apiKey yields a disabled
// client: appends are dropped and queries return empty results, so the
// daemon can run without telemetry.
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 2
	retry.RetryWaitMin = 250 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.HTTPClient.Timeout = httpTimeout
	retry.Logger = nil

	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		disabled: apiKey == "",
		log:      log,
		query:    retry.StandardClient(),
		post:     &http.Client{Timeout: httpTimeout},
	}
}

// Enabled reports whether the client has a ledger key and will persist
// state.
func (c *Client) Enabled() bool {
	return c != nil && !c.disabled
}

// RegisterClassifications idempotently PUTs each (name, classification)
// pair. Safe to call on every startup.
func (c *Client) RegisterClassifications(ctx context.Context, classifications map[string]string) error {
	if !c.Enabled() {
		return nil
	}

	for name, class := range classifications {
		body, err := json.Marshal(map[string]string{"classification": class})
		if err != nil {
			return fmt.Errorf("marshal classification %s: %w", name, err)
		}

		endpoint := c.baseURL + "/v1/outcomes/classifications/" + url.PathEscape(name)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.query.Do(req)
		if err != nil {
			return warperrors.NewLedgerUnavailableError("register classifications", 0, err)
		}
		if err := drainAndClassify(resp, "register classifications"); err != nil {
			return err
		}
	}

	return nil
}

// NewBatch starts an empty event batch bound to this client.
func (c *Client) NewBatch() *Batch {
	return &Batch{client: c}
}

// postEvents sends one atomic batch to POST /v1/events. The ledger accepts
// all events or none.
func (c *Client) postEvents(ctx context.Context, set *eventSet) error {
	if !c.Enabled() || set.empty() {
		return nil
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal event set: %w", err)
	}
	body, err := json.Marshal(envelope{D: base64.StdEncoding.EncodeToString(raw)})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.post.Do(req)
	if err != nil {
		return warperrors.NewLedgerUnavailableError("post events", 0, err)
	}
	return drainAndClassify(resp, "post events")
}

// getJSON fetches path (with query values) and decodes the response into
// out.
func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.query.Do(req)
	if err != nil {
		return warperrors.NewLedgerUnavailableError("get "+path, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return warperrors.NewLedgerUnavailableError("get "+path, resp.StatusCode, nil)
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return warperrors.NewLedgerRejectedError("get "+path, resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return warperrors.NewLedgerUnavailableError("get "+path, 0, err)
	}
	return nil
}

func drainAndClassify(resp *http.Response, op string) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return warperrors.NewLedgerUnavailableError(op, resp.StatusCode, nil)
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return warperrors.NewLedgerRejectedError(op, resp.StatusCode, string(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
