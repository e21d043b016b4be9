/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command rvpf-modbus-gateway runs a Modbus server connection over TCP
// or serial, answering Modbus client requests from an in-memory
// register file; the registers are not bound to point values.
package main

import (
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/xapiens/rvpf/internal/config"
	"github.com/xapiens/rvpf/internal/metrics"
	"github.com/xapiens/rvpf/internal/modbus"
)

var configPath string

// RootCmd is the gateway's entry point.
var RootCmd = &cobra.Command{
	Use:   "rvpf-modbus-gateway",
	Short: "Modbus client/server gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	RootCmd.Flags().StringVar(&configPath, "config", "", "path to the gateway's YAML configuration")
	_ = RootCmd.MarkFlagRequired("config")
}

func run() error {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EvalAndValidate(); err != nil {
		return err
	}

	metricsRegistry := metrics.New()
	if cfg.MetricsAddress != "" {
		metrics.ListenAndServeAsync(metricsRegistry, cfg.MetricsAddress)
	}

	gw := cfg.ModbusGateway
	proxy := newRegisterFile()

	switch {
	case gw.ListenAddress != "":
		return serveTCP(gw, proxy, metricsRegistry)
	case gw.SerialPort != "":
		return serveSerial(gw, proxy, metricsRegistry)
	default:
		log.Fatal("rvpf-modbus-gateway: one of modbusGateway.listenAddress or modbusGateway.serialPort is required")
		return nil
	}
}

func serveTCP(gw config.ModbusConfig, proxy modbus.ClientProxy, metricsRegistry *metrics.Registry) error {
	ln, err := modbus.NewTCPListener(gw.ListenAddress)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Infof("rvpf-modbus-gateway: listening on %s (tcp)", gw.ListenAddress)
	ln.Serve(func(conn net.Conn) {
		metricsRegistry.SessionsConnected.Inc()
		defer metricsRegistry.SessionsConnected.Dec()
		server := modbus.NewServer(conn, modbus.TCPCodec{}, gw.UnitID, proxy, false)
		server.Serve()
	})
	return nil
}

func serveSerial(gw config.ModbusConfig, proxy modbus.ClientProxy, metricsRegistry *metrics.Registry) error {
	ln, err := modbus.NewSerialListener(gw.SerialPort, gw.BaudRate, false)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Infof("rvpf-modbus-gateway: listening on %s (serial, %d baud)", gw.SerialPort, gw.BaudRate)
	metricsRegistry.SessionsConnected.Inc()
	defer metricsRegistry.SessionsConnected.Dec()
	ln.Serve(func(port serial.Port) {
		server := modbus.NewServer(port, modbus.RTUCodec{}, gw.UnitID, proxy, false)
		server.Serve()
	})
	return nil
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
