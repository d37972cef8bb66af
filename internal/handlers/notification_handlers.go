package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskReminder/internal/handlers/dto"
	"taskReminder/internal/logger"
	"taskReminder/internal/notify"

	"go.uber.org/zap"
)

const streamHeartbeat = 15 * time.Second

type NotificationHandler struct {
	Sink      notify.Sink
	Feed      NotificationFeed
	Inbox     NotificationInbox
	Reminders ReminderJob

	// Closing, when set, ends open streams; the server closes it on shutdown.
	Closing <-chan struct{}
}

func NewNotificationHandler(sink notify.Sink, feed NotificationFeed, inbox NotificationInbox, reminders ReminderJob) *NotificationHandler {
	return &NotificationHandler{
		Sink:      sink,
		Feed:      feed,
		Inbox:     inbox,
		Reminders: reminders,
	}
}

// Show displays a notification now. Success is reported in the body, like a boolean result.
func (h *NotificationHandler) Show(w http.ResponseWriter, r *http.Request) {
	var request dto.NotificationRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}
	if err := validateRequest(&request); err != nil {
		handleError(w, r, err, "show_notification")
		return
	}

	err := h.Sink.Show(r.Context(), notify.New(request.Title, request.Body, request.URL))
	if err != nil {
		logger.Error("HTTP: failed to show notification", err, zap.String("title", request.Title))
	}
	responseWithJSON(w, http.StatusOK, toPayload("success", err == nil))
}

// Push accepts a raw push message, JSON or plain text.
func (h *NotificationHandler) Push(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "cannot read push payload")
		return
	}

	n := notify.ParsePushPayload(data)
	err = h.Sink.Show(r.Context(), n)
	if err != nil {
		logger.Error("HTTP: failed to show push notification", err)
	}
	responseWithJSON(w, http.StatusAccepted, toPayload("success", err == nil))
}

func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	pending := h.Inbox.Drain()
	if pending == nil {
		pending = []notify.Notification{}
	}
	responseWithJSON(w, http.StatusOK, toPayload("notifications", pending))
}

// Stream is the page's listener: each notification is written as a server-sent event and acknowledged once flushed.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responseWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	requests, unsubscribe := h.Feed.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	logger.Info("HTTP: notification listener connected", zap.String("client_ip", r.RemoteAddr))
	defer logger.Info("HTTP: notification listener gone", zap.String("client_ip", r.RemoteAddr))

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.Closing:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case req := <-requests:
			data, err := json.Marshal(req.Notification)
			if err != nil {
				logger.Error("HTTP: failed to encode notification", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
			req.Ack()
		}
	}
}

func (h *NotificationHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reminders.Run(r.Context())
	if err != nil {
		handleError(w, r, err, "run_reminders")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("result", res))
}
