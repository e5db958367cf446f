package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/amken3d/jvs-host/bus"
	"github.com/amken3d/jvs-host/poller"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Enumerate the bus, then poll switch state until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := openLink()
			if err != nil {
				return err
			}
			defer link.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			session := bus.NewBusSession(link)
			devices, err := session.Enumerate(ctx, bus.EnumerateOptions{
				AssumeDevices: viper.GetInt("assume-devices"),
			})
			if err != nil {
				return err
			}
			logrus.WithField("count", len(devices)).Info("jvs: enumeration complete")

			p := poller.NewPoller(session, session.Registry)
			err = p.Run(ctx)
			if errors.Is(err, context.Canceled) {
				logrus.Info("jvs: shutting down")
				return nil
			}
			return err
		},
	}
}
