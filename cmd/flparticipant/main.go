package main

import (
	"log"

	"github.com/absmach/flparticipant/cli"
	"github.com/absmach/flparticipant/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	participantURL := cli.DefParticipantURL

	rootCmd := &cobra.Command{
		Use:   "flparticipant",
		Short: "Federated learning participant",
		Long:  `Federated learning participant joins a coordinator session and trains the rounds it is selected for.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				ParticipantURL:  participantURL,
				TLSVerification: cli.DefTLSVerification,
			}
			cli.SetParticipantSDK(sdk.NewSDK(sdkConf))
		},
	}

	rootCmd.PersistentFlags().StringVar(
		&participantURL,
		"url",
		participantURL,
		"Participant HTTP API URL",
	)

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(cli.NewStatusCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())
	rootCmd.AddCommand(cli.NewNudgeCmd())
	rootCmd.AddCommand(cli.NewInitCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
