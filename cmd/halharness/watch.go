package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/eventfeed"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/listener"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/spf13/cobra"
)

func (a *app) watchCommand() *cobra.Command {
	var serve bool
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report default device and device list changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			var feed *eventfeed.Feed
			if serve {
				feed = eventfeed.New(a.logger)
				defer feed.Close()
				go func() {
					if err := eventfeed.Serve(ctx, a.v.GetString("feed.address"), feed); err != nil {
						a.logger.Error("event feed stopped", "err", err)
					}
				}()
			}

			api := a.devices()
			var outMu sync.Mutex
			report := func(event eventfeed.Event, line string) {
				outMu.Lock()
				fmt.Fprintln(a.out, line)
				outMu.Unlock()
				if feed != nil {
					feed.Publish(event)
				}
			}

			var listeners []*listener.Listener
			defer func() {
				for _, l := range listeners {
					if err := l.Close(); err != nil {
						a.logger.Warn("failed to stop listener", "err", err)
					}
				}
			}()

			for _, scope := range []hal.Scope{hal.ScopeInput, hal.ScopeOutput} {
				scope := scope
				l, err := listener.NewDefaultDeviceListener(a.hal, scope, func(addresses []hal.PropertyAddress) hal.Status {
					event := eventfeed.NewEvent("default-device", hal.ObjectSystem, addresses)
					event.Scope = scope.String()
					current, ok := api.Default(scope)
					if !ok {
						report(event, fmt.Sprintf("%s default device changed to none", scope))
						return hal.NoErr
					}
					event.Device = uint32(current)
					report(event, fmt.Sprintf("%s default device changed to %s", scope, describe(api, current)))
					return hal.NoErr
				}, a.logger)
				if err != nil {
					return err
				}
				listeners = append(listeners, l)
			}
			listeners = append(listeners, listener.New(a.hal, hal.ObjectSystem, hal.GlobalAddress(hal.SelectorDevices), func(addresses []hal.PropertyAddress) hal.Status {
				event := eventfeed.NewEvent("devices", hal.ObjectSystem, addresses)
				devices, err := api.ListAll()
				if err != nil {
					report(event, "device list changed")
					return hal.NoErr
				}
				report(event, fmt.Sprintf("device list changed, %d devices", len(devices)))
				return hal.NoErr
			}, a.logger))

			for _, l := range listeners {
				if err := l.Start(); err != nil {
					return err
				}
			}

			outMu.Lock()
			fmt.Fprintln(a.out, "watching for changes")
			outMu.Unlock()

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "Also publish changes as JSON over a websocket at feed.address/events")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long instead of waiting for an interrupt")
	return cmd
}
