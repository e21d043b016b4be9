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

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var okString = color.GreenString("[ OK ]")
var failString = color.RedString("[FAIL]")

func init() {
	RootCmd.AddCommand(bindCmd)
}

var bindCmd = &cobra.Command{
	Use:   "bind <uri> <target>",
	Short: "bind a registry uri to a target and persist it",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry(bindingsPathFlag, registryPrivateFlag)
		if err != nil {
			log.Fatal(err)
		}
		uri, target := args[0], args[1]
		if err := reg.Bind(uri, target); err != nil {
			fmt.Println(failString, err)
			log.Fatal(err)
		}
		if err := saveBinding(bindingsPathFlag, uri, target); err != nil {
			log.Fatal(err)
		}
		fmt.Println(okString, fmt.Sprintf("bound %s -> %s", uri, target))
	},
}
