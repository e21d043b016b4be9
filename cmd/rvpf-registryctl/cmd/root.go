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

package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is registryctl's entry point. It's exported so the binary
// could be extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "rvpf-registryctl",
	Short: "inspect and edit a registry binding file",
}

var bindingsPathFlag string
var registryPrivateFlag bool

func init() {
	RootCmd.PersistentFlags().StringVar(&bindingsPathFlag, "bindings", "bindings.yaml", "path to the registry binding file")
	RootCmd.PersistentFlags().BoolVar(&registryPrivateFlag, "private", true, "declare the registry private (bare-path local lookups)")
}

// Execute is the main entry point for the CLI interface.
func Execute() {
	log.SetLevel(log.WarnLevel)
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
