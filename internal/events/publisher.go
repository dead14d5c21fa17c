package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/simon-backend/internal/engine"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, player string, evts []engine.Event) error
	Close() error
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Player    string    `json:"player"`
	Timestamp time.Time `json:"timestamp"`
	Pad       string    `json:"pad,omitempty"`
	Level     int       `json:"level,omitempty"`
	HighScore int       `json:"highScore,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

type Nop struct{}

func (Nop) Publish(context.Context, string, []engine.Event) error { return nil }
func (Nop) Close() error                                          { return nil }

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "simon.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

type NATSPublisher struct {
	nc     *nats.Conn
	config NATSConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewNATSPublisher(cfg NATSConfig, log *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("simon-backend"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("nats error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, config: cfg, log: log, now: time.Now}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, player string, evts []engine.Event) error {
	for _, e := range evts {
		if err := ctx.Err(); err != nil {
			return err
		}
		env := NewEnvelope(player, e, p.now())
		data, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}

		subject := Subject(p.config.SubjectPrefix, player, e.Type)
		msg := &nats.Msg{
			Subject: subject,
			Data:    data,
			Header: nats.Header{
				"Event-Type": []string{env.EventType},
				"Event-ID":   []string{env.EventID},
			},
		}
		if err := p.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		p.log.Debug("published event", zap.String("subject", subject), zap.String("event_id", env.EventID))
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}

func NewEnvelope(player string, e engine.Event, at time.Time) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: string(e.Type),
		Player:    player,
		Timestamp: at.UTC(),
		Pad:       string(e.Pad),
		Level:     e.Level,
		HighScore: e.HighScore,
		Reason:    e.Reason,
	}
}

// Subject builds <prefix>.<player>.<event>; NATS token separators in the player id are replaced.
func Subject(prefix, player string, t engine.EventType) string {
	safe := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(player)
	return fmt.Sprintf("%s.%s.%s", prefix, safe, t)
}
