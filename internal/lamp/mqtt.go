package lamp

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"MoonLamp/internal/model"
)

// Publisher is the part of an MQTT client the lamp uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// MQTTLamp publishes frames for lamps that join WiFi and subscribe to
// {prefix}/state. State is retained so a rebooted lamp picks it up at once.
type MQTTLamp struct {
	logger      zerolog.Logger
	client      Publisher
	stateTopic  string
	statusTopic string
	timeout     time.Duration
}

// NewMQTTLamp wraps an existing publisher.
func NewMQTTLamp(logger zerolog.Logger, client Publisher, topicPrefix string) *MQTTLamp {
	return &MQTTLamp{
		logger:      logger,
		client:      client,
		stateTopic:  topicPrefix + "/state",
		statusTopic: topicPrefix + "/host",
		timeout:     5 * time.Second,
	}
}

// DialMQTT connects to the broker and returns a lamp publishing on it.
func DialMQTT(logger zerolog.Logger, opts MQTTOptions) (*MQTTLamp, error) {
	statusTopic := opts.TopicPrefix + "/host"
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(30*time.Second).
		SetPingTimeout(10*time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(statusTopic, "offline", 1, true)

	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Error().Err(err).Msg("MQTT connection lost")
	}
	co.OnConnect = func(c mqtt.Client) {
		logger.Info().Str("broker", opts.Broker).Msg("MQTT connected")
		c.Publish(statusTopic, 1, true, "online")
	}

	client := mqtt.NewClient(co)
	tk := client.Connect()
	if !tk.WaitTimeout(10 * time.Second) {
		logger.Warn().Str("broker", opts.Broker).Msg("MQTT broker not reachable yet, retrying in background")
	} else if tk.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tk.Error())
	}
	return NewMQTTLamp(logger, client, opts.TopicPrefix), nil
}

func (l *MQTTLamp) Name() string { return "mqtt:" + l.stateTopic }

// Send publishes the frame (without the trailing newline) as retained state.
func (l *MQTTLamp) Send(ctx context.Context, msg model.LampMessage) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	tk := l.client.Publish(l.stateTopic, 1, true, frame[:len(frame)-1])

	select {
	case <-tk.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.timeout):
		return fmt.Errorf("publish %s: timed out after %v", l.stateTopic, l.timeout)
	}
	if err := tk.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", l.stateTopic, err)
	}
	return nil
}

// Close marks the host offline and disconnects.
func (l *MQTTLamp) Close() error {
	tk := l.client.Publish(l.statusTopic, 1, true, "offline")
	tk.WaitTimeout(time.Second)
	l.client.Disconnect(250)
	return nil
}
