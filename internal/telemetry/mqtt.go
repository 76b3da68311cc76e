package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Resanso/aquaseer-api/internal/sensor"
)

const (
	mqttQoS             = 0
	mqttDisconnectQuiet = 250
	mqttConnectRetries  = 5
)

// MQTTConfig holds the broker settings for the MQTT sink.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// ReadingPayload is the JSON body published per sensor by the MQTT and Kafka sinks.
type ReadingPayload struct {
	SensorID        string    `json:"sensorId"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	Status          string    `json:"status"`
	Temperature     float64   `json:"temperature"`
	PH              float64   `json:"ph"`
	DissolvedOxygen float64   `json:"dissolvedOxygen"`
	Timestamp       time.Time `json:"timestamp"`
}

// MQTTSink publishes one message per sensor on <prefix>/<id>.
type MQTTSink struct {
	client mqtt.Client
	prefix string
}

// ConnectMQTT dials the broker with exponential backoff and closes the
// connection when ctx is cancelled.
func ConnectMQTT(ctx context.Context, cfg MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt connect to %s failed: %v", cfg.BrokerURL, token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, mqttConnectRetries-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.BrokerURL, err)
	}
	log.Printf("connected to MQTT broker at %s", cfg.BrokerURL)

	go func() {
		<-ctx.Done()
		if client.IsConnected() {
			client.Disconnect(mqttDisconnectQuiet)
			log.Println("mqtt connection closed")
		}
	}()

	return &MQTTSink{client: client, prefix: strings.TrimSuffix(cfg.TopicPrefix, "/")}, nil
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Publish implements Sink.
func (s *MQTTSink) Publish(_ context.Context, ts time.Time, records []sensor.Record) error {
	for _, rec := range records {
		body, err := json.Marshal(NewReadingPayload(rec, ts))
		if err != nil {
			return fmt.Errorf("encode sensor %s: %w", rec.ID, err)
		}
		token := s.client.Publish(SensorTopic(s.prefix, rec.ID), mqttQoS, false, body)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish sensor %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	if s.client.IsConnected() {
		s.client.Disconnect(mqttDisconnectQuiet)
	}
	return nil
}

// SensorTopic returns the topic a sensor is published on.
func SensorTopic(prefix, sensorID string) string {
	return prefix + "/" + sensorID
}

// NewReadingPayload flattens a record into the published JSON shape.
func NewReadingPayload(rec sensor.Record, ts time.Time) ReadingPayload {
	if ts.IsZero() {
		ts = rec.LastUpdate
	}
	return ReadingPayload{
		SensorID:        rec.ID,
		Name:            rec.Name,
		Location:        rec.Location,
		Status:          string(rec.Status),
		Temperature:     rec.Readings.Temperature,
		PH:              rec.Readings.PH,
		DissolvedOxygen: rec.Readings.DissolvedOxygen,
		Timestamp:       ts.UTC(),
	}
}
