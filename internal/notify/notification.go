// Package notify delivers user-visible notifications to the page, through a live listener when one is connected.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	DefaultTitle = "Notifikasi Tugas"
	DefaultBody  = "Ada tugas yang perlu diperhatikan!"
	DefaultURL   = "/"
	Icon         = "/notification-icon.png"
)

type Notification struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	Icon      string    `json:"icon"`
	Badge     string    `json:"badge"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink shows a notification to the user.
type Sink interface {
	Show(ctx context.Context, n Notification) error
}

// New fills the icon and timestamp; an empty url opens the root page.
func New(title, body, url string) Notification {
	if url == "" {
		url = DefaultURL
	}
	return Notification{
		Title:     title,
		Body:      body,
		URL:       url,
		Icon:      Icon,
		Badge:     Icon,
		CreatedAt: time.Now(),
	}
}

// ParsePushPayload reads a push message. JSON fields are optional; anything that is not a JSON
// object becomes the body under the default title.
func ParsePushPayload(data []byte) Notification {
	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		URL   string `json:"url"`
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			payload.Title = DefaultTitle
			payload.Body = strings.TrimSpace(string(data))
		}
	}

	if payload.Title == "" {
		payload.Title = DefaultTitle
	}
	if payload.Body == "" {
		payload.Body = DefaultBody
	}
	return New(payload.Title, payload.Body, payload.URL)
}
