package push

import (
	"context"
	"encoding/json"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"

	"github.com/chatwire/internal/logger"
)

const (
	redisKeyPrefix  = "push:subs:"
	maxSubsPerUser  = 10
	subscriptionTTL = 30 * 24 * time.Hour
)

// Subscription is the browser-side Web Push subscription object.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Notifier stores subscriptions in redis and delivers Web Push messages
// signed with VAPID. A nil vapid disables sending; subscriptions are still
// stored.
type Notifier struct {
	redis *redis.Client
	vapid *webpush.Options
}

func NewNotifier(rdb *redis.Client, keys *VAPIDKeys) *Notifier {
	n := &Notifier{redis: rdb}
	if keys != nil && keys.PublicKey != "" && keys.PrivateKey != "" {
		n.vapid = &webpush.Options{
			Subscriber:      "chatwire-push",
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			TTL:             30,
		}
	}
	return n
}

// PublicKey returns the VAPID public key clients subscribe with, or "" when
// push is disabled.
func (n *Notifier) PublicKey() string {
	if n.vapid == nil {
		return ""
	}
	return n.vapid.VAPIDPublicKey
}

// Subscribe appends a subscription to the user's capped list.
func (n *Notifier) Subscribe(ctx context.Context, userID string, sub Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	key := redisKeyPrefix + userID
	pipe := n.redis.Pipeline()
	pipe.RPush(ctx, key, string(raw))
	pipe.LTrim(ctx, key, -maxSubsPerUser, -1)
	pipe.Expire(ctx, key, subscriptionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Unsubscribe drops the subscription with the given endpoint.
func (n *Notifier) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	return n.removeSubscription(ctx, userID, endpoint)
}

// Notify sends a notification to every subscription of the user. Endpoints
// the push service reports gone (410/404) are pruned.
func (n *Notifier) Notify(ctx context.Context, userID, title, body string, data map[string]string) {
	if n.vapid == nil {
		return
	}
	key := redisKeyPrefix + userID
	list, err := n.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.Errorf("push subs user=%s: %v", userID, err)
		return
	}
	payload, _ := json.Marshal(map[string]any{"title": title, "body": body, "data": data})
	for _, item := range list {
		var sub Subscription
		if json.Unmarshal([]byte(item), &sub) != nil || sub.Endpoint == "" {
			continue
		}
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, wpSub, n.vapid)
		if err != nil {
			logger.Errorf("push send user=%s: %v", userID, err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == 410 || resp.StatusCode == 404 {
			n.removeSubscription(ctx, userID, sub.Endpoint)
		}
	}
}

func (n *Notifier) removeSubscription(ctx context.Context, userID, endpoint string) error {
	key := redisKeyPrefix + userID
	list, err := n.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	var kept []string
	for _, item := range list {
		var sub Subscription
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint != endpoint {
			kept = append(kept, item)
		}
	}
	n.redis.Del(ctx, key)
	for _, v := range kept {
		n.redis.RPush(ctx, key, v)
	}
	if len(kept) > 0 {
		n.redis.Expire(ctx, key, subscriptionTTL)
	}
	return nil
}
