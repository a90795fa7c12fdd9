// Package telemetry ships navigator notices and status snapshots to the
// ground station and receives its commands.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/navigator"
	"github.com/curbz/rtl-navigator/pkg/util"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Config is the telemetry section of the application config. An empty
// broker selects the log sink.
type Config struct {
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	DeviceID  string `yaml:"device_id"`
	QueueSize int    `yaml:"queue_size"`
}

type config struct {
	Telemetry Config `yaml:"telemetry"`
}

var DefaultConfig = Config{
	ClientID:  "rtlnav",
	DeviceID:  "vehicle1",
	QueueSize: 64,
}

type outbound struct {
	topic   string
	payload []byte
}

// MQTTPublisher publishes over an auto-reconnecting MQTT connection.
// PublishStatus never blocks the control cycle: messages go through a
// bounded queue and are dropped when it is full.
type MQTTPublisher struct {
	cfg   Config
	cm    *autopaho.ConnectionManager
	queue chan outbound

	mu         sync.RWMutex
	connected  bool
	cmdHandler func(Command)

	dropped atomic.Uint64
}

func NewMQTTPublisher(cfg Config) *MQTTPublisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig.QueueSize
	}
	return &MQTTPublisher{
		cfg:   cfg,
		queue: make(chan outbound, cfg.QueueSize),
	}
}

func (m *MQTTPublisher) topic(leaf string) string {
	return fmt.Sprintf("rtlnav/%s/%s", m.cfg.DeviceID, leaf)
}

// Connect dials the broker, waits for the first connection and starts the
// publishing goroutine, which runs until ctx ends.
func (m *MQTTPublisher) Connect(ctx context.Context) error {
	serverURL, err := url.Parse(m.cfg.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     20,
		CleanStartOnInitialConnection: false,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			log.Infof("mqtt connection established to %s", m.cfg.Broker)
			m.setConnected(true)
		},
		OnConnectError: func(err error) {
			log.Warnf("mqtt connection error: %v", err)
			m.setConnected(false)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: m.cfg.ClientID,
			OnClientError: func(err error) {
				log.Errorf("mqtt client error: %v", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				reason := ""
				if d.Properties != nil {
					reason = d.Properties.ReasonString
				}
				log.Warnf("mqtt server disconnect: code=%d reason=%s", d.ReasonCode, reason)
				m.setConnected(false)
			},
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					m.handleMessage(pr.Packet)
					return true, nil
				},
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return fmt.Errorf("failed to create mqtt connection: %w", err)
	}
	m.cm = cm

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connectCtx); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	go m.run(ctx)
	return nil
}

func (m *MQTTPublisher) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// Dropped counts messages discarded because the queue was full.
func (m *MQTTPublisher) Dropped() uint64 {
	return m.dropped.Load()
}

// PublishStatus queues every notice on the critical topic and the snapshot
// itself on the status topic.
func (m *MQTTPublisher) PublishStatus(st *navigator.Status) {
	for _, text := range st.Notices {
		m.enqueue(m.topic("critical"), newNotice(st, text))
	}
	m.enqueue(m.topic("status"), newStatusPayload(st))
}

func (m *MQTTPublisher) enqueue(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal %s payload: %v", topic, err)
		return
	}
	select {
	case m.queue <- outbound{topic: topic, payload: payload}:
	default:
		n := m.dropped.Add(1)
		log.Warnf("telemetry queue full, dropped %s (%d dropped so far)", topic, n)
	}
}

func (m *MQTTPublisher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			if err := m.publish(ctx, msg); err != nil {
				log.Warnf("%v", err)
			}
		}
	}
}

func (m *MQTTPublisher) publish(ctx context.Context, msg outbound) error {
	if m.cm == nil {
		return ErrNotConnected
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.cm.Publish(pubCtx, &paho.Publish{
		Topic:   msg.topic,
		QoS:     1,
		Payload: msg.payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.topic, err)
	}
	return nil
}

// SubscribeCommands subscribes to the command topics and hands every
// well-formed command to handler.
func (m *MQTTPublisher) SubscribeCommands(ctx context.Context, handler func(Command)) error {
	if m.cm == nil {
		return ErrNotConnected
	}

	m.mu.Lock()
	m.cmdHandler = handler
	m.mu.Unlock()

	topic := m.topic("cmd/#")
	_, err := m.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to commands: %w", err)
	}
	log.Infof("subscribed to mqtt topic %s", topic)
	return nil
}

func (m *MQTTPublisher) handleMessage(p *paho.Publish) {
	m.mu.RLock()
	handler := m.cmdHandler
	m.mu.RUnlock()
	if handler == nil {
		return
	}

	leaf, ok := strings.CutPrefix(p.Topic, m.topic("cmd/"))
	if !ok {
		return
	}
	cmd, err := ParseCommand(leaf, p.Payload)
	if err != nil {
		log.Warnf("ignoring command on %s: %v", p.Topic, err)
		return
	}
	handler(cmd)
}

func (m *MQTTPublisher) Close(ctx context.Context) error {
	if m.cm == nil {
		return nil
	}
	log.Info("disconnecting from mqtt broker")

	disconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.cm.Disconnect(disconnectCtx)
}

// LoadConfig reads the telemetry section of the application config.
func LoadConfig(cfgPath string) (Config, error) {
	cfg := config{Telemetry: DefaultConfig}
	if err := util.LoadConfigInto(cfgPath, &cfg); err != nil {
		return cfg.Telemetry, fmt.Errorf("error reading telemetry config: %w", err)
	}
	return cfg.Telemetry, nil
}
