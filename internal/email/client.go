// Package email sends the verification, new-task, reminder and test emails through the EmailJS REST API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"taskReminder/internal/clock"
	"taskReminder/internal/logger"
	"taskReminder/internal/metrics"
	"taskReminder/internal/models/task"

	"github.com/spf13/cast"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	defaultDescription    = "Tidak ada deskripsi"
	defaultSubmissionLink = "Tidak ada link pengumpulan"

	TemplateVerification = "verification"
	TemplateNewTask      = "new_task"
	TemplateReminder     = "reminder"
	TemplateTest         = "test"
)

var ErrNotConfigured = errors.New("email service configuration is missing")

// SendError is returned when EmailJS answers with anything but 200.
type SendError struct {
	Status int
	Body   string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("emailjs: status %d: %s", e.Status, e.Body)
}

type Options struct {
	Endpoint               string
	ServiceID              string
	PublicKey              string
	PrivateKey             string
	VerificationTemplateID string
	NewTaskTemplateID      string
	ReminderTemplateID     string
	Timeout                time.Duration

	AppName  string
	AppURL   string
	Location *time.Location
}

type Client struct {
	opts  Options
	http  *http.Client
	clock clock.Clock
}

func NewClient(opts Options, clk clock.Clock) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	opts.AppURL = strings.TrimRight(opts.AppURL, "/")

	return &Client{
		opts: opts,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		clock: clk,
	}
}

type request struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (c *Client) SendVerification(ctx context.Context, to, token string) error {
	params := c.baseParams(to)
	params["verification_url"] = c.opts.AppURL + "/verify-email?token=" + token
	return c.send(ctx, TemplateVerification, c.opts.VerificationTemplateID, params)
}

func (c *Client) SendNewTask(ctx context.Context, to string, t *task.Task) error {
	params := c.baseParams(to)
	params["task_title"] = t.Title
	params["task_subject"] = t.Subject
	params["task_due_date"] = FormatDate(t.DueDate, c.opts.Location)
	params["task_description"] = t.DescriptionOr(defaultDescription)
	params["task_submission_link"] = t.SubmissionLinkOr(defaultSubmissionLink)
	return c.send(ctx, TemplateNewTask, c.opts.NewTaskTemplateID, params)
}

// SendReminder sends one combined message for all tasks due tomorrow. An empty list sends nothing.
func (c *Client) SendReminder(ctx context.Context, to string, tasks []*task.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tomorrow := FormatDate(clock.Tomorrow(c.clock.Now().In(c.opts.Location)), c.opts.Location)

	params := c.baseParams(to)
	params["task_title"] = fmt.Sprintf("Pengingat: %d Tugas Jatuh Tempo Besok", len(tasks))
	params["task_subject"] = "Beberapa Mata Pelajaran"
	params["task_due_date"] = tomorrow
	params["task_description"] = fmt.Sprintf("Berikut adalah tugas yang akan jatuh tempo besok (%s):\n\n%s", tomorrow, reminderHTML(tasks))
	params["task_submission_link"] = c.opts.AppURL
	return c.send(ctx, TemplateReminder, c.opts.ReminderTemplateID, params)
}

// SendTest reuses the new-task template with fixed content.
func (c *Client) SendTest(ctx context.Context, to string) error {
	params := c.baseParams(to)
	params["task_title"] = "Email Uji Coba - " + c.opts.AppName
	params["task_subject"] = "Uji Coba Notifikasi"
	params["task_due_date"] = FormatDate(c.clock.Now(), c.opts.Location)
	params["task_description"] = "Ini adalah email uji coba untuk memastikan sistem notifikasi email berfungsi dengan baik."
	params["task_submission_link"] = c.opts.AppURL
	return c.send(ctx, TemplateTest, c.opts.NewTaskTemplateID, params)
}

func (c *Client) baseParams(to string) map[string]string {
	return map[string]string{
		"to_email":     to,
		"app_url":      c.opts.AppURL,
		"app_name":     c.opts.AppName,
		"current_year": cast.ToString(c.clock.Now().In(c.opts.Location).Year()),
	}
}

func (c *Client) send(ctx context.Context, template, templateID string, params map[string]string) (err error) {
	defer func() { metrics.TrackEmail(template, err) }()

	if c.opts.ServiceID == "" || c.opts.PublicKey == "" || templateID == "" {
		logger.Error("Email: EmailJS configuration is missing", nil, zap.String("template", template))
		return ErrNotConfigured
	}

	body, err := json.Marshal(request{
		ServiceID:      c.opts.ServiceID,
		TemplateID:     templateID,
		UserID:         c.opts.PublicKey,
		AccessToken:    c.opts.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("encoding email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("Email: request failed", err, zap.String("template", template))
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		sendErr := &SendError{Status: resp.StatusCode, Body: string(text)}
		logger.Error("Email: EmailJS rejected the message", sendErr, zap.String("template", template))
		return sendErr
	}

	logger.Info("Email: sent",
		zap.String("template", template),
		zap.String("to", params["to_email"]),
		zap.Duration("ms", time.Since(start)))
	return nil
}

func reminderHTML(tasks []*task.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		b.WriteString(`<div style="margin-bottom: 15px; padding: 10px; border-left: 4px solid #ff6600; background-color: #fff3e0;">`)
		fmt.Fprintf(&b, `<h3 style="margin-top: 0; color: #ff6600;">%s</h3>`, html.EscapeString(t.Title))
		fmt.Fprintf(&b, `<p><strong>Mata Pelajaran:</strong> %s</p>`, html.EscapeString(t.Subject))
		if desc := t.DescriptionOr(""); desc != "" {
			fmt.Fprintf(&b, `<p><strong>Deskripsi:</strong> %s</p>`, html.EscapeString(desc))
		}
		if link := t.SubmissionLinkOr(""); link != "" {
			escaped := html.EscapeString(link)
			fmt.Fprintf(&b, `<p><strong>Link Pengumpulan:</strong> <a href="%s">%s</a></p>`, escaped, escaped)
		}
		b.WriteString(`</div>`)
	}
	return b.String()
}
