package calendar

import (
	"fmt"
	"time"
)

// Credentials is the token set returned by the OAuth endpoints.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// BusyInterval is a time range the calendar reports as occupied.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// EventInput describes a calendar event to create.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
}

// EventPatch is a partial update of an existing event.
type EventPatch struct {
	Summary     *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Timezone    string
}

// APIError is a non-2xx answer from the calendar service. Callers treat it
// as retryable and surface it generically.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api error: status %d: %s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type eventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventBody struct {
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Start       *eventDateTime `json:"start,omitempty"`
	End         *eventDateTime `json:"end,omitempty"`
}

type eventResponse struct {
	ID string `json:"id"`
}

type freeBusyRequest struct {
	TimeMin string             `json:"timeMin"`
	TimeMax string             `json:"timeMax"`
	Items   []freeBusyCalendar `json:"items"`
}

type freeBusyCalendar struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"busy"`
	} `json:"calendars"`
}
