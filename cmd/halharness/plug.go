package main

import (
	"fmt"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/aggregate"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/spf13/cobra"
)

func (a *app) plugCommand() *cobra.Command {
	var hold time.Duration

	cmd := &cobra.Command{
		Use:   "plug <input|output>",
		Short: "Plug an aggregate device around the default device, then unplug it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArg(args[0])
			if err != nil {
				return err
			}
			plugger, err := aggregate.New(a.hal, aggregate.Config{
				Scope:  scope,
				Name:   a.v.GetString("aggregate.name"),
				Vendor: a.v.GetString("aggregate.vendor"),
			}, a.logger)
			if err != nil {
				return err
			}

			if err := plugger.Plug(); err != nil {
				return err
			}
			api := a.devices()
			id := plugger.DeviceID()
			uid, _ := api.UniqueID(id, hal.ScopeGlobal)
			fmt.Fprintf(a.out, "plugged %s uid %s\n", describe(api, id), uid)

			if hold > 0 {
				select {
				case <-time.After(hold):
				case <-cmd.Context().Done():
				}
			}

			if err := plugger.Unplug(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "unplugged %d\n", id)
			return nil
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", 0, "How long the aggregate device stays plugged")
	return cmd
}
