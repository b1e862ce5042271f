package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

// Toggle handles POST /subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	channelID, err := pathID(r, "channelId", "channel id")
	if err != nil {
		return err
	}
	if channelID == caller.ID {
		return badRequest("You cannot subscribe to your own channel")
	}

	result, err := h.Subscriptions.Toggle(ctx, caller.ID, channelID)
	if err != nil {
		return orNotFound(err, "Channel not found")
	}
	metrics.RecordToggle("subscription", string(result))

	message := "Subscribed successfully"
	if result == models.Removed {
		message = "Unsubscribed successfully"
	}
	return respondJSON(ctx, w, http.StatusOK, toggleResponse{Status: result}, message)
}

// Subscribers handles GET /subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	channelID, err := pathID(r, "channelId", "channel id")
	if err != nil {
		return err
	}
	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		return orNotFound(err, "Channel not found")
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		return err
	}
	if subscribers == nil {
		subscribers = []models.SubscriberView{}
	}
	return respondJSON(ctx, w, http.StatusOK, subscribers, "Subscribers fetched successfully")
}

// SubscribedChannels handles GET /subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	subscriberID, err := pathID(r, "subscriberId", "subscriber id")
	if err != nil {
		return err
	}
	if _, err := h.Users.FindByID(ctx, subscriberID); err != nil {
		return orNotFound(err, "User not found")
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		return err
	}
	if channels == nil {
		channels = []models.SubscribedChannel{}
	}
	return respondJSON(ctx, w, http.StatusOK, channels, "Subscribed channels fetched successfully")
}
