package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgecheck-network/edgecheck/pkg/cli"
	"github.com/edgecheck-network/edgecheck/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.edgecheck/settings.json.

Settings provide defaults for flags and file locations:
  - username:     Device login (--user default)
  - config_path:  Policy file (--config default)
  - ledger_path:  CSV ledger of remediation runs
  - journal_path: JSON-lines journal of remediation runs
  - history_db:   SQLite database of saved compliance runs

Examples:
  edgecheck settings show
  edgecheck settings set username netops
  edgecheck settings set config_path /etc/edgecheck/policy.yaml
  edgecheck settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")
		for _, key := range settings.Keys() {
			value, _ := userSettings.Get(key)
			if value == "" {
				value = "(not set)"
			}
			t.Row(key, value)
		}
		t.Flush()

		fmt.Printf("\nLedger:  %s\n", userSettings.GetLedgerPath())
		fmt.Printf("Journal: %s\n", userSettings.GetJournalPath())
		fmt.Printf("History: %s\n", userSettings.GetHistoryDB())
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := userSettings.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := userSettings.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <setting>",
	Short: "Get a setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := userSettings.Get(args[0])
		if err != nil {
			return err
		}
		if value == "" {
			fmt.Println("(not set)")
		} else {
			fmt.Println(value)
		}
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		userSettings.Clear()
		if err := userSettings.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("Settings cleared")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
}
