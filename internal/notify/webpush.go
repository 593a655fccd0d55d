package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

// WebPush fans a notification out to every stored subscription.
type WebPush struct {
	publicKey  string
	privateKey string
	contact    string
	subs       *repository.SubscriptionRepository
}

func NewWebPush(publicKey, privateKey, contact string, subs *repository.SubscriptionRepository) *WebPush {
	return &WebPush{
		publicKey:  publicKey,
		privateKey: privateKey,
		contact:    contact,
		subs:       subs,
	}
}

type webPushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Icon      string `json:"icon,omitempty"`
	Vibrate   []int  `json:"vibrate,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	EventType string `json:"type"`
}

func (w *WebPush) Send(ctx context.Context, n Notification) error {
	if w.publicKey == "" || w.privateKey == "" {
		return fmt.Errorf("web push: VAPID keys not configured")
	}

	subs, err := w.subs.List(ctx)
	if err != nil {
		return fmt.Errorf("web push: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	data, err := json.Marshal(webPushPayload{
		Title:     n.Title,
		Body:      n.Body,
		Icon:      n.Icon,
		Vibrate:   n.Vibration,
		TaskID:    n.TaskID,
		EventType: string(n.Type),
	})
	if err != nil {
		return fmt.Errorf("web push: marshal payload: %w", err)
	}

	var failed int
	for _, sub := range subs {
		if err := w.sendToSubscription(ctx, sub, data); err != nil {
			slog.Error("web push: send failed", "endpoint", sub.Endpoint, "error", err)
			failed++
		}
	}
	if failed == len(subs) {
		return fmt.Errorf("web push: all %d deliveries failed", failed)
	}
	return nil
}

func (w *WebPush) sendToSubscription(ctx context.Context, sub model.PushSubscription, data []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, wpSub, &webpush.Options{
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		Subscriber:      w.contact,
		TTL:             86400,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		slog.Info("web push: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := w.subs.Delete(ctx, sub.ID); err != nil {
			slog.Error("web push: delete expired subscription", "id", sub.ID, "error", err)
		}
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
