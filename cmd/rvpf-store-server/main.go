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

// Command rvpf-store-server accepts store-session connections against
// an in-process backend, building one StoreSession multiplexer per
// connection. No request framing is read from the connection; it is
// held open until the peer closes it.
package main

import (
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xapiens/rvpf/internal/config"
	"github.com/xapiens/rvpf/internal/metrics"
	"github.com/xapiens/rvpf/internal/registry"
	"github.com/xapiens/rvpf/internal/store"
	"github.com/xapiens/rvpf/internal/storetest"
)

var configPath string

// RootCmd is the store-server's entry point.
var RootCmd = &cobra.Command{
	Use:   "rvpf-store-server",
	Short: "store session multiplexer server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	RootCmd.Flags().StringVar(&configPath, "config", "", "path to the server's YAML configuration")
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

	reg := registry.New(cfg.RegistryPrivate)
	if _, err := reg.Resolve(cfg.RegistryURI); err != nil {
		return err
	}

	metricsRegistry := metrics.New()
	if cfg.MetricsAddress != "" {
		metrics.ListenAndServeAsync(metricsRegistry, cfg.MetricsAddress)
	}

	backend := storetest.New()

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Infof("rvpf-store-server: listening on %s", cfg.ListenAddress)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Infof("rvpf-store-server: listener stopped: %v", err)
			return nil
		}
		go serve(conn, backend, metricsRegistry)
	}
}

// serve owns one accepted connection's StoreSession for its lifetime.
// The wire framing that carries query/update/deliver requests across
// the connection is a fabric-layer concern external to the session
// multiplexer itself; this loop holds the connection open and
// keeps the session's accounting correct around connect/disconnect.
func serve(conn net.Conn, backend store.Backend, metricsRegistry *metrics.Registry) {
	defer conn.Close()

	roles := store.NewRoleSet(store.RoleInfo, store.RoleQuery, store.RoleUpdate, store.RoleListen)
	session := store.NewStoreSession(backend, "anonymous", roles)
	_ = session

	metricsRegistry.SessionsConnected.Inc()
	defer metricsRegistry.SessionsConnected.Dec()

	log.Debugf("rvpf-store-server: session opened for %s", conn.RemoteAddr())
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			log.Debugf("rvpf-store-server: session closed for %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
