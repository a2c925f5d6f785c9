package participant

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	DefHeartbeatInterval = 5 * time.Second
	DefCoordinatorURL    = "http://localhost:8081"
)

type Config struct {
	LogLevel           string        `env:"LOG_LEVEL"           envDefault:"info"`
	ParticipantID      string        `env:"ID"`
	Name               string        `env:"NAME"`
	CoordinatorURL     string        `env:"COORDINATOR_URL"     envDefault:"http://localhost:8081"`
	CoordinatorTimeout time.Duration `env:"COORDINATOR_TIMEOUT" envDefault:"30s"`
	HeartbeatInterval  time.Duration `env:"HEARTBEAT_INTERVAL"  envDefault:"5s"`
	UploadFormat       string        `env:"UPLOAD_FORMAT"       envDefault:"json"`
	TrainerFile        string        `env:"TRAINER_FILE"`
	TrainerImage       string        `env:"TRAINER_IMAGE"`
	RegistryURL        string        `env:"REGISTRY_URL"`
	RegistryUsername   string        `env:"REGISTRY_USERNAME"`
	RegistryPassword   string        `env:"REGISTRY_PASSWORD"`
	RegistryPlainHTTP  bool          `env:"REGISTRY_PLAIN_HTTP" envDefault:"false"`
	MQTTAddress        string        `env:"MQTT_ADDRESS"`
	MQTTQoS            uint8         `env:"MQTT_QOS"            envDefault:"1"`
	MQTTTimeout        time.Duration `env:"MQTT_TIMEOUT"        envDefault:"30s"`
	ClientID           string        `env:"CLIENT_ID"`
	ClientKey          string        `env:"CLIENT_KEY"`
	DomainID           string        `env:"DOMAIN_ID"`
	ChannelID          string        `env:"CHANNEL_ID"`
	OTELURL            url.URL       `env:"OTEL_URL"`
	TraceRatio         float64       `env:"TRACE_RATIO"         envDefault:"0"`
}

func (c Config) Validate() error {
	if c.ParticipantID == "" {
		return errors.New("participant id is required")
	}
	if c.CoordinatorURL == "" {
		return errors.New("coordinator url is required")
	}
	if _, err := url.ParseRequestURI(c.CoordinatorURL); err != nil {
		return fmt.Errorf("coordinator url is not a valid URL: %w", err)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", c.HeartbeatInterval)
	}
	switch c.UploadFormat {
	case "json", "cbor":
	default:
		return fmt.Errorf("unsupported upload format %q", c.UploadFormat)
	}
	if c.TrainerFile == "" && c.TrainerImage == "" {
		return errors.New("either a trainer file or a trainer image is required")
	}
	if c.TrainerImage != "" && c.RegistryURL == "" {
		return errors.New("registry url is required when using a trainer image")
	}
	if c.MQTTAddress != "" && (c.DomainID == "" || c.ChannelID == "") {
		return errors.New("domain id and channel id are required when mqtt is enabled")
	}

	return nil
}
