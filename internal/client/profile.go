// Package client holds thin HTTP clients for the external
// collaborator services this core consumes.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ProfileClient looks up user display names from the profile
// service. Lookups are wrapped in a circuit breaker and always
// degrade to a generic label: notification text is never worth
// failing a booking for.
type ProfileClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

// NewProfileClient constructs a ProfileClient for the given profile
// service base URL (e.g. http://profile-service:8081).
func NewProfileClient(baseURL string) *ProfileClient {
	return &ProfileClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
			},
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "profile-service",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
		log: logrus.WithField("component", "profile_client"),
	}
}

type profileResponse struct {
	DisplayName string `json:"display_name"`
}

// DisplayName resolves a user ID to a display name. On any failure
// (service down, breaker open, unknown user) it returns a generic
// "Guest #N" label instead of an error.
func (c *ProfileClient) DisplayName(ctx context.Context, userID uint64) string {
	fallback := fmt.Sprintf("Guest #%d", userID)
	if c.baseURL == "" {
		return fallback
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/users/%d", c.baseURL, userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("profile service returned %d", resp.StatusCode)
		}
		var pr profileResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return nil, err
		}
		return pr.DisplayName, nil
	})
	if err != nil {
		c.log.WithError(err).WithField("user_id", userID).Debug("profile lookup failed")
		return fallback
	}
	name, ok := out.(string)
	if !ok || name == "" {
		return fallback
	}
	return name
}
