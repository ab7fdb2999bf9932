package cmds

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"support-chat/internal/chatapi"
	"support-chat/internal/domain"
	"support-chat/internal/logging"
)

func newSendCommand(rf *rootFlags) *cobra.Command {
	cf := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig(cmd, rf, cf)
			if err != nil {
				return err
			}
			logger, closer, err := logging.Init(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			ctrl, err := newController(cfg, logger)
			if err != nil {
				return err
			}
			reply, err := ctrl.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				logger.Debug().Err(err).Msg("send failed")
				return errors.New(chatapi.UserMessage(err))
			}

			label := string(reply.Agent)
			if reply.Agent == domain.AgentNone {
				label = "Assistant"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", label, reply.Text)
			return err
		},
	}
	cf.register(cmd)
	return cmd
}
