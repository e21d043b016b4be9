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

// Package config loads and validates the YAML configuration shared by
// the store server, the protocol gateways and the registry CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Config is the top-level on-disk configuration.
type Config struct {
	RegistryURI     string        `yaml:"registryUri"`     // where this process registers itself
	ListenAddress   string        `yaml:"listenAddress"`   // store/protocol server bind address
	RegistryPrivate bool          `yaml:"registryPrivate"` // see registry.New
	KeepAlive       time.Duration `yaml:"keepAlive"`       // default SOM/store keep-alive
	PullTimeout     time.Duration `yaml:"pullTimeout"`     // default store Pull timeout
	MetricsAddress  string        `yaml:"metricsAddress"`  // prometheus /metrics bind address, empty disables
	TLSCertFile     string        `yaml:"tlsCertFile"`     // empty disables TLS (plain-mode connections)
	TLSKeyFile      string        `yaml:"tlsKeyFile"`
	DNP3Outstation  DNP3Config    `yaml:"dnp3Outstation"`
	ModbusGateway   ModbusConfig  `yaml:"modbusGateway"`
}

// DNP3Config configures an outstation endpoint.
type DNP3Config struct {
	ListenAddress  string `yaml:"listenAddress"`
	OutstationAddr uint16 `yaml:"outstationAddress"`
	MasterAddr     uint16 `yaml:"masterAddress"`
}

// ModbusConfig configures a gateway endpoint, either TCP or serial.
type ModbusConfig struct {
	ListenAddress string        `yaml:"listenAddress"` // non-empty selects TCP transport
	SerialPort    string        `yaml:"serialPort"`     // non-empty selects serial transport
	BaudRate      int           `yaml:"baudRate"`
	UnitID        byte          `yaml:"unitId"`
	Timeout       time.Duration `yaml:"timeout"`
	BatchSize     int           `yaml:"batchSize"`
}

// EvalAndValidate checks the config for internal consistency, the way
// a daemon validates before it starts listening.
func (c *Config) EvalAndValidate() error {
	if c.RegistryURI == "" {
		return fmt.Errorf("bad config: 'registryUri' is required")
	}
	if c.ListenAddress == "" {
		return fmt.Errorf("bad config: 'listenAddress' is required")
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.PullTimeout < 0 {
		return fmt.Errorf("bad config: 'pullTimeout' must be >= 0")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("bad config: 'tlsCertFile' and 'tlsKeyFile' must be set together")
	}
	if c.ModbusGateway.BatchSize < 0 {
		return fmt.Errorf("bad config: 'modbusGateway.batchSize' must be >= 0")
	}
	return nil
}

// ReadConfig reads and unmarshals path, rejecting unknown keys.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %q", path)
	}
	c := Config{}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %q", path)
	}
	return &c, nil
}
