package salesclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calderapos/register-edge/pkg/auth"
	"github.com/calderapos/register-edge/pkg/config"
	"github.com/calderapos/register-edge/pkg/logger"
	"github.com/calderapos/register-edge/pkg/types"
)

var (
	errBaseURLRequired  = errors.New("central base url is required")
	errRegisterRequired = errors.New("register id and store id are required")
	errLoggerRequired   = errors.New("sales client logger is required")
)

// Client talks to the central sales API on behalf of a single register. Every
// request carries a short-lived register identity token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	healthPath string
	jwtCfg     config.JWTConfig
	registerID string
	storeID    string
	logger     *logger.Logger
	now        func() time.Time
}

// New validates the configuration and builds a central API client.
func New(cfg config.CentralConfig, jwtCfg config.JWTConfig, reg config.RegisterConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(reg.ID) == "" || strings.TrimSpace(reg.StoreID) == "" {
		return nil, errRegisterRequired
	}

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/healthz"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    baseURL,
		healthPath: healthPath,
		jwtCfg:     jwtCfg,
		registerID: reg.ID,
		storeID:    reg.StoreID,
		logger:     logg,
		now:        time.Now,
	}, nil
}

// SubmitSale posts a completed sale. The server deduplicates on the
// client-generated sale id, so redelivery after a lost response is safe.
func (c *Client) SubmitSale(ctx context.Context, payload types.SalePayload) error {
	ctx = c.logger.WithSaleID(ctx, payload.SaleID.String())
	c.logger.Debug(ctx, "submitting sale to central")

	return c.postJSON(ctx, "/api/v1/sales", payload, nil)
}

// ResumeHeldSaleRequest is the body for finalizing a held sale on central.
// Overwrite asks the server to finalize even when the version check fails,
// carrying an operator's conflict decision.
type ResumeHeldSaleRequest struct {
	ExpectedVersion int64             `json:"expected_version"`
	Overwrite       bool              `json:"overwrite,omitempty"`
	Sale            types.SalePayload `json:"sale"`
}

// ResumeHeldSale finalizes a held sale on central. The expected version guards
// against the held ticket having been resumed from another register; overwrite
// forces the finalization past a version mismatch.
func (c *Client) ResumeHeldSale(ctx context.Context, heldSaleID uuid.UUID, expectedVersion int64, overwrite bool, payload types.SalePayload) error {
	ctx = c.logger.WithFields(ctx, map[string]any{
		"held_sale_id": heldSaleID.String(),
		"sale_id":      payload.SaleID.String(),
	})
	c.logger.Debug(ctx, "resuming held sale on central")

	body := ResumeHeldSaleRequest{ExpectedVersion: expectedVersion, Overwrite: overwrite, Sale: payload}
	return c.postJSON(ctx, fmt.Sprintf("/api/v1/held-sales/%s/resume", heldSaleID), body, nil)
}

// FetchHeldSale retrieves the current snapshot of a held sale from central.
func (c *Client) FetchHeldSale(ctx context.Context, heldSaleID uuid.UUID) (*types.HeldSale, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/held-sales/%s", heldSaleID), nil)
	if err != nil {
		return nil, err
	}

	var held types.HeldSale
	if err := c.do(req, &held); err != nil {
		return nil, err
	}
	return &held, nil
}

// Ping hits the central health endpoint. A nil error means central is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return &TransientError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return &TransientError{Err: fmt.Errorf("central health returned %d", resp.StatusCode)}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token, err := auth.MintRegisterToken(c.jwtCfg, c.now(), auth.RegisterTokenPayload{
		RegisterID: c.registerID,
		StoreID:    c.storeID,
	})
	if err != nil {
		return nil, fmt.Errorf("minting register token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes the request and classifies failures so the sync engine can
// decide between retrying and flagging a conflict.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		var envelope successEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return &TransientError{Err: fmt.Errorf("decoding response body: %w", err)}
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &TransientError{Err: fmt.Errorf("decoding response data: %w", err)}
		}
		return nil

	case resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("central returned %d: %s", resp.StatusCode, truncate(raw))}

	default:
		return conflictFromResponse(resp.StatusCode, raw)
	}
}

type successEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func conflictFromResponse(status int, raw []byte) *ConflictError {
	ce := &ConflictError{StatusCode: status, Message: truncate(raw)}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		ce.Code = envelope.Error.Code
		ce.Message = envelope.Error.Message
		ce.Details = envelope.Error.Details
	}
	return ce
}

func truncate(raw []byte) string {
	const max = 512
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max]
	}
	return s
}
