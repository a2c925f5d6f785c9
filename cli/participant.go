package cli

import (
	"github.com/absmach/flparticipant/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	DefTLSVerification        = false
	DefParticipantURL         = "http://localhost:9021"
	defOffset          uint64 = 0
	defLimit           uint64 = 10
)

var psdk sdk.SDK

func SetParticipantSDK(s sdk.SDK) {
	psdk = s
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show participant status",
		Long:  `Show the phase and round of a running participant.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := psdk.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}
}

func NewRoundsCmd() *cobra.Command {
	offset, limit := defOffset, defLimit

	cmd := &cobra.Command{
		Use:   "rounds",
		Short: "List completed rounds",
		Long:  `List the rounds a running participant trained and uploaded.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := psdk.Rounds(offset, limit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.Flags().Uint64VarP(&offset, "offset", "o", offset, "Offset")
	cmd.Flags().Uint64VarP(&limit, "limit", "l", limit, "Limit")

	return cmd
}

func NewNudgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nudge",
		Short: "Poll the coordinator now",
		Long:  `Ask a running participant to send a heartbeat without waiting for the next tick.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := psdk.Nudge(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Heartbeat requested")
		},
	}
}
