package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Resanso/aquaseer-api/internal/sensor"
	"github.com/Resanso/aquaseer-api/internal/simulation"
)

const requestTimeout = 10 * time.Second

// apiClient talks to the AquaSeer HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

type sensorsResponse struct {
	Sensors []sensor.Record `json:"sensors"`
	Stats   sensor.Stats    `json:"stats"`
}

type historyResponse struct {
	Points []simulation.HistoryPoint `json:"points"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *apiClient) signIn(ctx context.Context, email, password string) (sessionResponse, error) {
	var out sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *apiClient) sensors(ctx context.Context) (sensorsResponse, error) {
	var out sensorsResponse
	err := c.do(ctx, http.MethodGet, "/api/sensors", nil, &out)
	return out, err
}

func (c *apiClient) history(ctx context.Context, id string) ([]simulation.HistoryPoint, error) {
	var out historyResponse
	err := c.do(ctx, http.MethodGet, "/api/sensors/"+url.PathEscape(id)+"/history", nil, &out)
	return out.Points, err
}

func (c *apiClient) addSensor(ctx context.Context, name, location string, schedule sensor.Schedule) (sensor.Record, error) {
	var out sensor.Record
	body := map[string]string{"name": name, "location": location, "schedule": string(schedule)}
	err := c.do(ctx, http.MethodPost, "/api/sensors", body, &out)
	return out, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(raw))
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
