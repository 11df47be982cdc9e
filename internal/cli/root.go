package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flags carries values that override the config file.
type flags struct {
	port         string
	configPath   string
	hostPassword string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	v := viper.New()
	v.SetEnvPrefix("LIVE_QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "live-quiz",
		Short:         "Session-based multiplayer quiz server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&f.port, "port", "", "port to listen on, overrides server.port (env: LIVE_QUIZ_PORT)")
	fs.StringVar(&f.configPath, "config", "config/config.yaml", "path to YAML config (env: LIVE_QUIZ_CONFIG)")
	fs.StringVar(&f.hostPassword, "host-password", "", "password required to create games, overrides host.password (env: LIVE_QUIZ_HOST_PASSWORD)")

	fs.VisitAll(func(fl *pflag.Flag) {
		_ = v.BindPFlag(fl.Name, fl)
		_ = v.BindEnv(fl.Name)
		if !fl.Changed && v.IsSet(fl.Name) {
			_ = fs.Set(fl.Name, fmt.Sprintf("%v", v.Get(fl.Name)))
		}
	})

	cmd.AddCommand(NewStartCmd(f))
	cmd.AddCommand(NewMigrateCmd(f))
	cmd.AddCommand(NewSeedCmd(f))
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}
