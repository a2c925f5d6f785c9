package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/flparticipant"
	"github.com/absmach/flparticipant/participant"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const DefConfigPath = "config.toml"

var errConfigExists = errors.New("config file already exists, use --force to overwrite")

// NewInitCmd writes config.toml with the participant identity and its
// provisioned credentials.
func NewInitCmd() *cobra.Command {
	var (
		path           = DefConfigPath
		force          bool
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create participant configuration",
		Long:  `Create config.toml holding the participant identity and provisioned credentials.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if _, err := os.Stat(path); err == nil && !force {
				logErrorCmd(*cmd, errConfigExists)

				return
			}

			cfg := DefaultConfig()
			if !nonInteractive {
				if err := configForm(&cfg).Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			if err := flparticipant.SaveConfig(path, cfg); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("Successfully created %s", path))
			logJSONCmd(*cmd, cfg.Participant)
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", path, "Config file path")
	cmd.Flags().BoolVarP(&force, "force", "f", force, "Overwrite an existing config file")
	cmd.Flags().BoolVarP(&nonInteractive, "yes", "y", nonInteractive, "Accept generated defaults without prompting")

	return cmd
}

// DefaultConfig generates a fresh participant identity.
func DefaultConfig() flparticipant.Config {
	return flparticipant.Config{
		Participant: flparticipant.ParticipantConfig{
			ID:             uuid.NewString(),
			Name:           namegenerator.NewGenerator().Generate(),
			CoordinatorURL: participant.DefCoordinatorURL,
		},
	}
}

func configForm(cfg *flparticipant.Config) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Participant name").
				Value(&cfg.Participant.Name),
			huh.NewInput().
				Title("Coordinator URL").
				Value(&cfg.Participant.CoordinatorURL).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("coordinator url is required")
					}

					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("MQTT client ID").
				Description("Leave empty to disable MQTT.").
				Value(&cfg.Participant.ClientID),
			huh.NewInput().
				Title("MQTT client key").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Participant.ClientKey),
			huh.NewInput().
				Title("Domain ID").
				Value(&cfg.Participant.DomainID),
			huh.NewInput().
				Title("Channel ID").
				Value(&cfg.Participant.ChannelID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Registry URL").
				Description("OCI registry holding the trainer module.").
				Value(&cfg.Registry.URL),
			huh.NewInput().
				Title("Registry username").
				Value(&cfg.Registry.Username),
			huh.NewInput().
				Title("Registry password").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Registry.Password),
		),
	)
}
