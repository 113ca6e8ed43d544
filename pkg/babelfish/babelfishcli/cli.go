package babelfishcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/toshok/babelfish/pkg/babelfish"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "babelfish"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type runtimeProvider func() *babelfish.Runtime

func NewRootCmd(configDir string) *cobra.Command {
	cfg := babelfish.Config{
		DataDir:  filepath.Join(configDir, "data"),
		Settings: filepath.Join(configDir, "babelfish.yml"),
	}
	rootCmd := &cobra.Command{
		Use:   "babelfish",
		Short: "Multihost USB keyboard/mouse adapter",
		Long:  `Babelfish bridges a USB keyboard and mouse to a legacy workstation input protocol (Sun, ADB, Apollo/Domain).`,
	}
	var r *babelfish.Runtime
	provider := func() *babelfish.Runtime {
		return r
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.Settings, "settings", cfg.Settings, "settings file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		r, err = babelfish.NewRuntime(cfg)
		return err
	}
	rootCmd.AddCommand(NewRun(provider))
	rootCmd.AddCommand(NewListHosts(provider))
	rootCmd.AddCommand(NewSetHost(provider))
	rootCmd.AddCommand(NewListDevices(provider))
	return rootCmd
}

func NewRun(runtime runtimeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer runtime().Close()
			return runtime().Run(cmd.Context())
		},
	}
}

func NewListHosts(runtime runtimeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-hosts",
		Short: "List host emulators",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer runtime().Close()
			active, _ := runtime().ActiveHost()
			for i, desc := range runtime().Hosts().Descriptors() {
				mark := "  "
				if i == active {
					mark = "* "
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%d %-8s %s\n", mark, i, desc.Name, desc.Notes)
			}
			return nil
		},
	}
}

func NewSetHost(runtime runtimeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "set-host <index|name>",
		Short: "Persist the host selection for the next boot",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer runtime().Close()
			if len(args) != 1 {
				return fmt.Errorf("usage: set-host <index|name>")
			}
			registry := runtime().Hosts()
			index, err := strconv.Atoi(args[0])
			if err != nil {
				var ok bool
				index, ok = registry.IndexOf(args[0])
				if !ok {
					return fmt.Errorf("unknown host: %s", args[0])
				}
			}
			if index < 0 || index >= registry.Len() {
				return fmt.Errorf("host index out of range: %d", index)
			}
			return runtime().Selection().Persist(index)
		},
	}
}

func NewListDevices(runtime runtimeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List mounted USB input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer runtime().Close()
			jsonB, err := json.MarshalIndent(runtime().USB().Devices(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}
