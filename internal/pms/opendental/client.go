// Package opendental implements the pms.Adapter interface against the
// Open Dental style REST API: API-key header auth, JSON bodies, and an
// optional DateTStamp filter for incremental pulls.
package opendental

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/roshan1595/crowndesk-backend-sub002/internal/pms"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// Client talks to the PMS REST API. A zero-configured client (empty base URL
// or key) reports IsConfigured() == false and must not be called further;
// the sync engine guarantees that.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// get issues an authenticated GET and decodes the JSON response into out.
// since, when non-nil, is passed as the DateTStamp query parameter so the PMS
// returns only records modified after the watermark.
func (c *Client) get(ctx context.Context, path string, since *time.Time, query url.Values, out interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse url %s: %w", path, err)
	}
	if query == nil {
		query = url.Values{}
	}
	if since != nil {
		query.Set("DateTStamp", since.UTC().Format(time.RFC3339))
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "ODFHIR "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) FetchPatients(ctx context.Context, since *time.Time) ([]pms.ExternalPatient, error) {
	var out []pms.ExternalPatient
	if err := c.get(ctx, "/patients", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchAppointments(ctx context.Context, since *time.Time) ([]pms.ExternalAppointment, error) {
	var out []pms.ExternalAppointment
	if err := c.get(ctx, "/appointments", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchInsurancePlans(ctx context.Context, since *time.Time) ([]pms.ExternalInsurancePlan, error) {
	var out []pms.ExternalInsurancePlan
	if err := c.get(ctx, "/insplans", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchInsuranceSubscriptions(ctx context.Context, since *time.Time) ([]pms.ExternalInsuranceSubscription, error) {
	var out []pms.ExternalInsuranceSubscription
	if err := c.get(ctx, "/inssubs", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchProcedures(ctx context.Context, since *time.Time) ([]pms.ExternalProcedure, error) {
	var out []pms.ExternalProcedure
	if err := c.get(ctx, "/procedurelogs", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchProcedureCodes(ctx context.Context, since *time.Time) ([]pms.ExternalProcedureCode, error) {
	var out []pms.ExternalProcedureCode
	if err := c.get(ctx, "/procedurecodes", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchProviders(ctx context.Context, since *time.Time) ([]pms.ExternalProvider, error) {
	var out []pms.ExternalProvider
	if err := c.get(ctx, "/providers", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchOperatories(ctx context.Context, since *time.Time) ([]pms.ExternalOperatory, error) {
	var out []pms.ExternalOperatory
	if err := c.get(ctx, "/operatories", since, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchFamilyMembers(ctx context.Context, externalPatientID string) (*pms.ExternalFamily, error) {
	var out pms.ExternalFamily
	q := url.Values{}
	q.Set("PatNum", externalPatientID)
	if err := c.get(ctx, "/familymodules", nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PushPatient(ctx context.Context, p *pms.PatientPush) (string, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal patient: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/patients", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Authorization", "ODFHIR "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST /patients: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("POST /patients: status %d: %s", resp.StatusCode, string(body))
	}

	var created struct {
		ID string `json:"PatNum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode push response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("push response missing PatNum")
	}
	return created.ID, nil
}

var _ pms.Adapter = (*Client)(nil)
