package flparticipant

import (
	"fmt"
	"os"

	"github.com/absmach/flparticipant/participant"
	"github.com/pelletier/go-toml"
)

const filePermission = 0o600

// Config is the provisioned part of the participant configuration, kept in
// config.toml next to the binary.
type Config struct {
	Participant ParticipantConfig `toml:"participant"`
	Registry    RegistryConfig    `toml:"registry"`
}

type ParticipantConfig struct {
	ID             string `toml:"id"`
	Name           string `toml:"name"`
	CoordinatorURL string `toml:"coordinator_url"`
	ClientID       string `toml:"client_id"`
	ClientKey      string `toml:"client_key"`
	DomainID       string `toml:"domain_id"`
	ChannelID      string `toml:"channel_id"`
}

type RegistryConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Apply fills the fields of pc that the environment left empty.
func (c Config) Apply(pc *participant.Config) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}

	fill(&pc.ParticipantID, c.Participant.ID)
	fill(&pc.Name, c.Participant.Name)
	fill(&pc.ClientID, c.Participant.ClientID)
	fill(&pc.ClientKey, c.Participant.ClientKey)
	fill(&pc.DomainID, c.Participant.DomainID)
	fill(&pc.ChannelID, c.Participant.ChannelID)
	fill(&pc.RegistryURL, c.Registry.URL)
	fill(&pc.RegistryUsername, c.Registry.Username)
	fill(&pc.RegistryPassword, c.Registry.Password)
	if c.Participant.CoordinatorURL != "" && pc.CoordinatorURL == participant.DefCoordinatorURL {
		pc.CoordinatorURL = c.Participant.CoordinatorURL
	}
}
