package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/derhofbauer/wristrelay/internal/settings"
)

// appsCmd represents the apps command
var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage per-application forwarding",
	Long: `List and toggle which applications get their notifications forwarded.

Applications are registered automatically the first time they post a
notification, disabled by default.`,
	RunE: runAppsList,
}

var appsEnableCmd = &cobra.Command{
	Use:   "enable <package>",
	Short: "Enable forwarding for an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAppEnabled(cmd, args[0], true)
	},
}

var appsDisableCmd = &cobra.Command{
	Use:   "disable <package>",
	Short: "Disable forwarding for an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAppEnabled(cmd, args[0], false)
	},
}

var appsNameCmd = &cobra.Command{
	Use:   "name <package> <name>",
	Short: "Set the display name shown on the wearable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := openAppStore(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return apps.SetName(args[0], args[1])
	},
}

func init() {
	appsCmd.AddCommand(appsEnableCmd)
	appsCmd.AddCommand(appsDisableCmd)
	appsCmd.AddCommand(appsNameCmd)
}

func openAppStore(cmd *cobra.Command) (*settings.AppStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	base, err := basePath(cfg)
	if err != nil {
		return nil, err
	}
	return settings.NewAppStore(base)
}

func runAppsList(cmd *cobra.Command, args []string) error {
	apps, err := openAppStore(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	prefs := apps.All()
	if len(prefs) == 0 {
		fmt.Println("no applications seen yet")
		return nil
	}

	enabled := color.New(color.FgGreen).SprintFunc()
	disabled := color.New(color.FgRed).SprintFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tNAME\tFORWARDING")
	for _, pref := range prefs {
		state := disabled("off")
		if pref.Enabled() {
			state = enabled("on")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", pref.Package, pref.Label(), state)
	}
	return w.Flush()
}

func setAppEnabled(cmd *cobra.Command, pkg string, enabled bool) error {
	apps, err := openAppStore(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	return apps.SetEnabled(pkg, enabled)
}
