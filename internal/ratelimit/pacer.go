package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/glazeops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyWhatsAppSend = "whatsapp:send:%s"

	minRetryWait = 10 * time.Millisecond
)

// Pacer spaces out outbound sends that share an upstream quota.
type Pacer interface {
	Wait(ctx context.Context) error
}

type PacerParams struct {
	fx.In

	Cfg      config.Config
	Payments *config.PaymentsConfigHolder
	Log      *zap.Logger
	Client   *redis.Client `optional:"true"`
}

// SendPacer paces WhatsApp sends through the Redis token bucket when Redis is
// configured, and otherwise sleeps the configured fixed delay. Tuning is read
// from the payments config on every call so reloads apply to running sends.
type SendPacer struct {
	bucket   *TokenBucket
	key      string
	payments *config.PaymentsConfigHolder
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewSendPacer(p PacerParams) Pacer {
	sender := strings.TrimSpace(p.Cfg.WhatsApp.PhoneNumberID)
	if sender == "" {
		sender = "default"
	}
	return &SendPacer{
		bucket:   NewTokenBucket(p.Client),
		key:      fmt.Sprintf(keyWhatsAppSend, sender),
		payments: p.Payments,
		log:      p.Log.Named("ratelimit.pacer"),
		sleep:    sleepContext,
	}
}

func (p *SendPacer) Wait(ctx context.Context) error {
	cfg := p.payments.Get().Campaign
	if p.bucket == nil || cfg.RatePerSecond <= 0 || cfg.Burst <= 0 {
		return p.sleep(ctx, cfg.SendDelay)
	}

	for {
		res, err := p.bucket.Allow(ctx, p.key, float64(cfg.RatePerSecond), cfg.Burst)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("token bucket unavailable, using fixed delay", zap.Error(err))
			return p.sleep(ctx, cfg.SendDelay)
		}
		if res.Allowed {
			return nil
		}
		wait := res.RetryAfter
		if wait < minRetryWait {
			wait = minRetryWait
		}
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
