package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/gpio-keysd/internal/keys"
)

// bufferCapacity bounds how many messages are held while the broker is away.
const bufferCapacity = 256

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// RealPublisher publishes to an actual MQTT broker. Messages produced while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
// If the broker is not reachable yet, the publisher starts in buffering
// mode and the client keeps retrying in the background.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	p := &RealPublisher{
		topic:  Topic,
		buffer: newRingBuffer(bufferCapacity),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// ConnectRetry keeps trying in the background.
		log.Printf("mqtt: broker not reachable yet, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if len(pending) == 0 {
		log.Printf("mqtt: connected")
		return
	}
	log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	for _, msg := range pending {
		p.send(msg)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v (buffering until reconnect)", err)
}

// publish delivers one message, buffering it if the broker is unreachable.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnected() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	// Flush anything that was buffered between the reconnect and the
	// connect callback's drain.
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	for _, m := range pending {
		if err := p.send(m); err != nil {
			return err
		}
	}
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends an input event to the MQTT broker.
func (p *RealPublisher) Publish(event keys.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	err = p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	if err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
