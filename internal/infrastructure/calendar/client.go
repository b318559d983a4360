package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/config"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL  = "https://www.googleapis.com/calendar/v3"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"

	calendarScope = "https://www.googleapis.com/auth/calendar"
)

// Client talks to the Google Calendar REST API. All methods return *APIError
// for non-2xx answers so callers can distinguish service failures from
// transport ones.
type Client struct {
	client       *http.Client
	log          *logrus.Logger
	baseURL      string
	tokenURL     string
	authURL      string
	clientID     string
	clientSecret string
	redirectURL  string
}

func NewClient(cfg config.GoogleConfig, log *logrus.Logger) *Client {
	return &Client{
		client:       &http.Client{Timeout: 10 * time.Second},
		log:          log,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		authURL:      defaultAuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
	}
}

// AuthURL builds the provider consent URL for the authorization flow.
func (c *Client) AuthURL(state string) string {
	params := nurl.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURL)
	params.Set("response_type", "code")
	params.Set("scope", calendarScope)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	params.Set("state", state)
	return c.authURL + "?" + params.Encode()
}

// ExchangeAuthCode trades an authorization code for a credential set.
func (c *Client) ExchangeAuthCode(ctx context.Context, code string) (*Credentials, error) {
	form := nurl.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURL)

	return c.tokenRequest(ctx, form, "")
}

// RefreshAccessToken exchanges the refresh token for a fresh access token.
// The provider may omit the refresh token in the answer; the old one is
// kept in that case.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := nurl.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	return c.tokenRequest(ctx, form, refreshToken)
}

func (c *Client) tokenRequest(ctx context.Context, form nurl.Values, fallbackRefresh string) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("Calendar token request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = fallbackRefresh
	}
	return creds, nil
}

// ListBusyIntervals queries the freebusy endpoint for one calendar.
func (c *Client) ListBusyIntervals(ctx context.Context, accessToken, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	body := freeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   []freeBusyCalendar{{ID: calendarID}},
	}

	var parsed freeBusyResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/freeBusy", accessToken, body, &parsed); err != nil {
		return nil, err
	}

	var intervals []BusyInterval
	for _, busy := range parsed.Calendars[calendarID].Busy {
		start, err := time.Parse(time.RFC3339, busy.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy start %q: %w", busy.Start, err)
		}
		end, err := time.Parse(time.RFC3339, busy.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy end %q: %w", busy.End, err)
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateEvent inserts an event and returns its id.
func (c *Client) CreateEvent(ctx context.Context, accessToken, calendarID string, ev EventInput) (string, error) {
	body := eventBody{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &eventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.Timezone},
		End:         &eventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.Timezone},
	}

	url := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, nurl.PathEscape(calendarID))
	var created eventResponse
	if err := c.doJSON(ctx, http.MethodPost, url, accessToken, body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateEvent patches the given fields of an existing event.
func (c *Client) UpdateEvent(ctx context.Context, accessToken, calendarID, eventID string, patch EventPatch) error {
	body := eventBody{}
	if patch.Summary != nil {
		body.Summary = *patch.Summary
	}
	if patch.Description != nil {
		body.Description = *patch.Description
	}
	if patch.Start != nil {
		body.Start = &eventDateTime{DateTime: patch.Start.Format(time.RFC3339), TimeZone: patch.Timezone}
	}
	if patch.End != nil {
		body.End = &eventDateTime{DateTime: patch.End.Format(time.RFC3339), TimeZone: patch.Timezone}
	}

	url := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, nurl.PathEscape(calendarID), nurl.PathEscape(eventID))
	return c.doJSON(ctx, http.MethodPatch, url, accessToken, body, nil)
}

// DeleteEvent removes an event from the calendar.
func (c *Client) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, nurl.PathEscape(calendarID), nurl.PathEscape(eventID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("Calendar event delete failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusGone {
		return c.apiError(resp)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, url, accessToken string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("Calendar request %s %s failed: %v", method, url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode calendar response: %w", err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	c.log.Warnf("Calendar api answered %d: %s", apiErr.StatusCode, apiErr.Body)
	return apiErr
}
