package main

import (
	"fmt"

	"github.com/amken3d/jvs-host/bus"
	"github.com/amken3d/jvs-host/serial"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func enumerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enumerate",
		Short: "Reset the bus and report every device found",
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := openLink()
			if err != nil {
				return err
			}
			defer link.Close()

			session := bus.NewBusSession(link)
			devices, err := session.Enumerate(cmd.Context(), bus.EnumerateOptions{
				AssumeDevices: viper.GetInt("assume-devices"),
			})
			if err != nil {
				return err
			}

			for _, d := range devices {
				fmt.Printf("addr=0x%02X manufacturer=%q product=%q cmd=%.1f jvs=%.1f comms=%.1f\n",
					d.Address, d.Manufacturer, d.Product, d.Versions.Command, d.Versions.JVS, d.Versions.Comms)
			}
			return nil
		},
	}
}

func openLink() (serial.Link, error) {
	cfg := serial.DefaultConfig(viper.GetString("device"))
	if baud := viper.GetInt("baud"); baud > 0 {
		cfg.Baud = baud
	}
	return serial.Open(cfg)
}
