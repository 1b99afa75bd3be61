package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/derhofbauer/wristrelay/internal/settings"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change daemon preferences",
	Long: `List, read and write the daemon's preferences. The running daemon
picks changes up immediately.

Well-known keys:
  ` + settings.PrefEnabled + `       master switch ("true"/"false")
  ` + settings.PrefNotifier + `      transport ("calendar"/"bluetooth")
  ` + settings.PrefDoNotDisturb + `           honor do-not-disturb ("true"/"false")
  ` + settings.PrefScreenOn + `     skip while user is present ("true"/"false")
  ` + settings.PrefPeerName + `       wearable name prefix`,
	RunE: runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openSettings(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		fmt.Println(manager.Get(args[0]))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one preference value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openSettings(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return manager.Set(args[0], args[1])
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func openSettings(cmd *cobra.Command) (*settings.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	base, err := basePath(cfg)
	if err != nil {
		return nil, err
	}
	return settings.NewManager(base)
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	manager, err := openSettings(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	keys := manager.Keys()
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, key := range keys {
		fmt.Fprintf(w, "%s\t%s\n", key, manager.Get(key))
	}
	return w.Flush()
}
