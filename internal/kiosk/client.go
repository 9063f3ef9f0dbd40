package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
)

// Client implements Resolver and CheckInAPI over the portal's REST
// surface.  It is the production collaborator; tests and offline
// kiosks substitute stubs satisfying the same interfaces.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL (no trailing
// slash).  httpClient may be nil, in which case a 10 second timeout
// client is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) (int, []byte, error) {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.Unmarshal(raw.Bytes(), out); err != nil {
			return resp.StatusCode, raw.Bytes(), fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, raw.Bytes(), nil
}

// ResolveByID fetches a visitor record.  404 and transport failures
// both surface as ErrNotFound, per the kiosk's failure taxonomy.
func (c *Client) ResolveByID(ctx context.Context, id uint64) (model.Visitor, error) {
	var out struct {
		Visitor model.Visitor `json:"visitor"`
	}
	status, err := c.getJSON(ctx, "/api/visitors/"+strconv.FormatUint(id, 10), &out)
	if err != nil || status == http.StatusNotFound {
		return model.Visitor{}, ErrNotFound
	}
	if status < 200 || status >= 300 {
		return model.Visitor{}, ErrNotFound
	}
	return out.Visitor, nil
}

// ResolveByPhoneYear resolves a returning visitor from the identifying
// pair.  Misses and transport failures both surface as ErrNotFound.
func (c *Client) ResolveByPhoneYear(ctx context.Context, phone string, year int) (model.Visitor, error) {
	var out struct {
		Visitor model.Visitor `json:"visitor"`
	}
	path := "/api/visitors/lookup?phone=" + phone + "&birth_year=" + strconv.Itoa(year)
	status, err := c.getJSON(ctx, path, &out)
	if err != nil || status < 200 || status >= 300 {
		return model.Visitor{}, ErrNotFound
	}
	return out.Visitor, nil
}

// CheckInNew submits the registration payload.  A 409 response decodes
// the existing pair and returns it with ErrDuplicateVisit.
func (c *Client) CheckInNew(ctx context.Context, payload NewVisitorPayload) (model.VisitorVisit, error) {
	var out model.VisitorVisit
	status, raw, err := c.postJSON(ctx, "/api/visitors/check-in", payload, &out)
	if err != nil {
		return model.VisitorVisit{}, err
	}
	return finishCheckIn(status, raw, out)
}

// CheckInReturning attempts the form-skipping check-in for a known
// visitor ID.
func (c *Client) CheckInReturning(ctx context.Context, visitorID uint64) (model.VisitorVisit, error) {
	var out model.VisitorVisit
	body := map[string]uint64{"visitor_id": visitorID}
	status, raw, err := c.postJSON(ctx, "/api/visitors/check-in/returning", body, &out)
	if err != nil {
		return model.VisitorVisit{}, err
	}
	return finishCheckIn(status, raw, out)
}

func finishCheckIn(status int, raw []byte, out model.VisitorVisit) (model.VisitorVisit, error) {
	switch {
	case status == http.StatusConflict:
		// The conflict body also carries the pre-existing pair.
		var pair model.VisitorVisit
		if err := json.Unmarshal(raw, &pair); err != nil {
			return model.VisitorVisit{}, ErrMalformedResponse
		}
		return pair, ErrDuplicateVisit
	case status == http.StatusNotFound:
		return model.VisitorVisit{}, ErrNotFound
	case status >= 200 && status < 300:
		return out, nil
	default:
		return model.VisitorVisit{}, fmt.Errorf("check-in failed with status %d", status)
	}
}

// ActiveVisit resolves the stored visitor ID back into the open
// visitor/visit pair when resuming after a reload.
func (c *Client) ActiveVisit(ctx context.Context, visitorID uint64) (model.VisitorVisit, error) {
	var out model.VisitorVisit
	path := "/api/visitors/" + strconv.FormatUint(visitorID, 10) + "/active-visit"
	status, err := c.getJSON(ctx, path, &out)
	if err != nil || status == http.StatusNotFound {
		return model.VisitorVisit{}, ErrNotFound
	}
	if status < 200 || status >= 300 {
		return model.VisitorVisit{}, fmt.Errorf("active-visit failed with status %d", status)
	}
	return out, nil
}

// CheckOut closes a visit.
func (c *Client) CheckOut(ctx context.Context, visitID uint64) error {
	path := "/api/visits/" + strconv.FormatUint(visitID, 10) + "/check-out"
	status, _, err := c.postJSON(ctx, path, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("check-out failed with status %d", status)
	}
	return nil
}
