package handlers

import (
	"net/http"

	"taskReminder/internal/handlers/dto"
	"taskReminder/internal/logger"

	"go.uber.org/zap"
)

type SubscriberHandler struct {
	Subscribers SubscriberService
}

func NewSubscriberHandler(subscribers SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{Subscribers: subscribers}
}

// Subscribe registers an address and mails a verification link unless it is already verified.
func (h *SubscriberHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var request dto.SubscribeRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}
	if err := validateRequest(&request); err != nil {
		handleError(w, r, err, "subscribe")
		return
	}

	sub, err := h.Subscribers.AddSubscriber(r.Context(), request.Email)
	if err != nil {
		handleError(w, r, err, "subscribe")
		return
	}

	sent := false
	if !sub.Verified {
		if err := h.Subscribers.SendVerificationEmail(r.Context(), sub); err != nil {
			handleError(w, r, err, "subscribe")
			return
		}
		sent = true
	}

	logger.Info("HTTP_OUT: subscriber registered",
		zap.String("subscriber_id", sub.ID.String()),
		zap.Bool("verification_sent", sent))

	responseWithJSON(w, http.StatusOK,
		toPayload("subscriber", dto.FromSubscriber(sub)),
		toPayload("verification_sent", sent),
	)
}

func (h *SubscriberHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Subscribers.VerifySubscriber(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		handleError(w, r, err, "verify_subscriber")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("subscriber", dto.FromSubscriber(sub)))
}

func (h *SubscriberHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var request dto.SubscribeRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}
	if err := validateRequest(&request); err != nil {
		handleError(w, r, err, "test_email")
		return
	}

	if err := h.Subscribers.SendTestEmail(r.Context(), request.Email); err != nil {
		handleError(w, r, err, "test_email")
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("success", true))
}
