package bridge

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Client is one broker session. Reconnection is the service's job, so a
// Client is used once and discarded after Lost fires.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error
	Lost() <-chan error
	Close()
}

type pahoClient struct {
	c    paho.Client
	lost chan error
}

func dialPaho(cfg Config) (Client, error) {
	pc := &pahoClient{lost: make(chan error, 1)}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			select {
			case pc.lost <- err:
			default:
			}
		})
	pc.c = paho.NewClient(opts)
	return pc, nil
}

func (p *pahoClient) Connect(ctx context.Context) error {
	return wait(ctx, p.c.Connect())
}

func (p *pahoClient) Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error {
	return wait(ctx, p.c.Publish(topic, qos, retain, payload))
}

func (p *pahoClient) Lost() <-chan error { return p.lost }

func (p *pahoClient) Close() {
	if p.c.IsConnected() {
		p.c.Disconnect(250)
	}
}

func wait(ctx context.Context, tok paho.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
