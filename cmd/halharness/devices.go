package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/spf13/cobra"
)

func (a *app) listCommand() *cobra.Command {
	var scopeName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := a.devices()
			scope := hal.ScopeGlobal
			if scopeName != "" {
				var err error
				if scope, err = scopeArg(scopeName); err != nil {
					return err
				}
			}

			var devices []hal.ObjectID
			var err error
			if scope == hal.ScopeGlobal {
				devices, err = api.ListAll()
			} else {
				devices, err = api.ListInScope(scope)
			}
			if err != nil {
				return err
			}

			defaultInput, _ := api.Default(hal.ScopeInput)
			defaultOutput, _ := api.Default(hal.ScopeOutput)

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUID\tNAME\tIN\tOUT\tDEFAULT")
			for _, d := range devices {
				uid, _ := api.UniqueID(d, hal.ScopeGlobal)
				name, _ := api.DisplayName(d, hal.ScopeGlobal)
				in, _ := api.ChannelCount(d, hal.ScopeInput)
				out, _ := api.ChannelCount(d, hal.ScopeOutput)
				marker := ""
				switch {
				case d == defaultInput && d == defaultOutput:
					marker = "input,output"
				case d == defaultInput:
					marker = "input"
				case d == defaultOutput:
					marker = "output"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", d, uid, name, in, out, marker)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&scopeName, "scope", "s", "", "Only list devices with channels in this scope (input or output)")
	return cmd
}

func (a *app) defaultCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Read or change the default device of a scope",
	}

	getCmd := &cobra.Command{
		Use:   "get <input|output>",
		Short: "Print the default device and its active data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArg(args[0])
			if err != nil {
				return err
			}
			api := a.devices()
			current, ok := api.Default(scope)
			if !ok {
				fmt.Fprintf(a.out, "%s: none\n", scope)
				return nil
			}
			fmt.Fprintf(a.out, "%s: %s\n", scope, describe(api, current))
			if code, ok := api.DefaultSourceName(scope); ok {
				if name, err := api.ActiveSourceName(current, scope); err == nil {
					fmt.Fprintf(a.out, "source: %s (%s)\n", code, name)
				} else {
					fmt.Fprintf(a.out, "source: %s\n", code)
				}
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <input|output> <device id or uid>",
		Short: "Make a device the default of a scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArg(args[0])
			if err != nil {
				return err
			}
			api := a.devices()
			target, err := resolveDevice(api, args[1])
			if err != nil {
				return err
			}
			changed, err := api.SetDefault(target, scope)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(a.out, "%s default is now %s\n", scope, describe(api, target))
			} else {
				fmt.Fprintf(a.out, "%s default unchanged\n", scope)
			}
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}

func (a *app) switchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <input|output>",
		Short: "Move the default device of a scope to the next device in that scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArg(args[0])
			if err != nil {
				return err
			}
			api := a.devices()
			switcher, err := api.NewSwitcher(scope)
			if err != nil {
				return err
			}
			changed, err := switcher.Next()
			if err != nil {
				return err
			}
			current, _ := api.Default(scope)
			if changed {
				fmt.Fprintf(a.out, "%s default is now %s\n", scope, describe(api, current))
			} else {
				fmt.Fprintf(a.out, "%s default unchanged\n", scope)
			}
			return nil
		},
	}
}
