// Package cmds holds the cobra commands of the support-chat binary.
package cmds

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"support-chat/internal/chatapi"
	"support-chat/internal/config"
	"support-chat/internal/conversation"
)

const defaultLogFileName = "support-chat.log"

// rootFlags are the persistent logging flags. A flag only overrides the
// environment when it was set explicitly.
type rootFlags struct {
	logLevel  string
	logFormat string
	logFile   string
}

func NewRootCommand() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "support-chat",
		Short:         "Talk to AI customer support from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rf.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (env LOG_LEVEL)")
	pf.StringVar(&rf.logFormat, "log-format", "", "log format: json or text (env LOG_FORMAT)")
	pf.StringVar(&rf.logFile, "log-file", "", "write logs to this file (env LOG_FILE)")

	root.AddCommand(
		newChatCommand(rf),
		newSendCommand(rf),
		newServeCommand(rf),
	)
	return root
}

func (rf *rootFlags) apply(cmd *cobra.Command, l *config.Logging) {
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		l.Level = rf.logLevel
	}
	if fs.Changed("log-format") {
		l.Format = rf.logFormat
	}
	if fs.Changed("log-file") {
		l.File = rf.logFile
	}
}

type clientFlags struct {
	apiURL     string
	devAddress string
	timeout    time.Duration
}

func (cf *clientFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&cf.apiURL, "api-url", "", "chat backend base URL (env SUPPORT_CHAT_API_URL)")
	fs.StringVar(&cf.devAddress, "dev-address", "", "backend address shown when the service is unreachable (env SUPPORT_CHAT_DEV_ADDRESS)")
	fs.DurationVar(&cf.timeout, "timeout", 0, "request timeout (env SUPPORT_CHAT_TIMEOUT)")
}

func loadClientConfig(cmd *cobra.Command, rf *rootFlags, cf *clientFlags) (config.Client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return config.Client{}, err
	}
	rf.apply(cmd, &cfg.Logging)

	fs := cmd.Flags()
	if fs.Changed("api-url") {
		cfg.APIURL = cf.apiURL
	}
	if fs.Changed("dev-address") {
		cfg.DevAddress = cf.devAddress
	}
	if fs.Changed("timeout") {
		cfg.Timeout = cf.timeout
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		return config.Client{}, errors.New("no chat API URL configured: set SUPPORT_CHAT_API_URL or pass --api-url")
	}
	return cfg, nil
}

func newController(cfg config.Client, logger zerolog.Logger) (*conversation.Controller, error) {
	client, err := chatapi.NewClient(cfg.APIURL,
		chatapi.WithTimeout(cfg.Timeout),
		chatapi.WithDevAddress(cfg.DevAddress),
		chatapi.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create chat client")
	}
	ctrl, err := conversation.NewController(client, conversation.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "create conversation controller")
	}
	return ctrl, nil
}

func defaultLogFile() string {
	return filepath.Join(os.TempDir(), defaultLogFileName)
}
