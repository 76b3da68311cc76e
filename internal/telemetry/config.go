package telemetry

import (
	"errors"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a sink's broker variable is unset.
var ErrNotConfigured = errors.New("telemetry sink not configured")

// MQTTFromEnv reads MQTT_BROKER_URL, MQTT_CLIENT_ID, MQTT_USERNAME,
// MQTT_PASSWORD, and MQTT_TOPIC_PREFIX.
func MQTTFromEnv() (MQTTConfig, error) {
	cfg := MQTTConfig{
		BrokerURL:   strings.TrimSpace(os.Getenv("MQTT_BROKER_URL")),
		ClientID:    defaultString(os.Getenv("MQTT_CLIENT_ID"), "aquaseer-api"),
		Username:    os.Getenv("MQTT_USERNAME"),
		Password:    os.Getenv("MQTT_PASSWORD"),
		TopicPrefix: defaultString(os.Getenv("MQTT_TOPIC_PREFIX"), "aquaseer/sensors"),
	}
	if cfg.BrokerURL == "" {
		return MQTTConfig{}, ErrNotConfigured
	}
	return cfg, nil
}

// KafkaConfig holds the broker list and topic for the Kafka sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaFromEnv reads the comma separated KAFKA_BROKERS and KAFKA_TOPIC.
func KafkaFromEnv() (KafkaConfig, error) {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return KafkaConfig{}, ErrNotConfigured
	}
	return KafkaConfig{
		Brokers: brokers,
		Topic:   defaultString(os.Getenv("KAFKA_TOPIC"), "aquaseer.pond-readings"),
	}, nil
}

func defaultString(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
