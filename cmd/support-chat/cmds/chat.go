package cmds

import (
	"os"

	"github.com/spf13/cobra"

	"support-chat/internal/logging"
	"support-chat/internal/tui"
)

func newChatCommand(rf *rootFlags) *cobra.Command {
	cf := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive support conversation",
		Long: "Start an interactive support conversation. A full-screen UI is used when " +
			"stdin is a terminal; otherwise each input line is sent as one message.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadClientConfig(cmd, rf, cf)
			if err != nil {
				return err
			}
			// The full-screen UI owns the terminal, so logs go to a file.
			if cfg.Logging.File == "" && tui.IsTerminal(os.Stdin) {
				cfg.Logging.File = defaultLogFile()
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
			logger.Debug().Str("api_url", cfg.APIURL).Msg("starting chat")
			return tui.Run(cmd.Context(), ctrl, os.Stdin, os.Stdout, logger)
		},
	}
	cf.register(cmd)
	return cmd
}
