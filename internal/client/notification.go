package client

import (
	"context"
	"net/http"
	"time"

	"shopease/internal/model"
)

const NotificationPeer = "notification"

// Notifications posts messages to the notification service
type Notifications struct {
	p *peer
}

func NewNotifications(baseURL string, timeout time.Duration, opts Options) *Notifications {
	return &Notifications{p: newPeer(NotificationPeer, baseURL, timeout, opts)}
}

// Send calls POST /notifications
func (n *Notifications) Send(ctx context.Context, msg model.NotificationMessage) error {
	return n.p.call(ctx, http.MethodPost, "/notifications", msg, nil)
}
