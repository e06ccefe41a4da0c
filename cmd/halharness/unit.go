package main

import (
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/audiounit"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/spf13/cobra"
)

func (a *app) unitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unit <input|output>",
		Short: "Open a processing unit on the default device of a scope and print its configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArg(args[0])
			if err != nil {
				return err
			}
			unit, err := audiounit.DefaultUnit(a.hal, scope, a.logger)
			if err != nil {
				return err
			}
			defer unit.Close()

			current, err := unit.CurrentDevice()
			if err != nil {
				return err
			}
			frames, err := unit.BufferFrameSize(scope, hal.UnitScopeGlobal)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "kind: %s\n", unit.Kind())
			fmt.Fprintf(a.out, "device: %s\n", describe(a.devices(), current))
			fmt.Fprintf(a.out, "buffer frame size: %d\n", frames)
			for _, s := range []hal.Scope{hal.ScopeInput, hal.ScopeOutput} {
				enabled, err := unit.ScopeEnabled(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s enabled: %t\n", s, enabled)
			}
			return nil
		},
	}
}
