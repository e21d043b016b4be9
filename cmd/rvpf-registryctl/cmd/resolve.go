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

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <uri> [uri...]",
	Short: "classify one or more registry uris as local/remote, private/public",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadRegistry(bindingsPathFlag, registryPrivateFlag)
		if err != nil {
			log.Fatal(err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetColWidth(20)
		table.SetHeader([]string{"uri", "local", "private", "remote", "lookup key"})
		for _, uri := range args {
			entry, err := reg.Resolve(uri)
			if err != nil {
				fmt.Println(failString, uri, err)
				continue
			}
			table.Append([]string{
				uri,
				fmt.Sprintf("%v", entry.IsLocal),
				fmt.Sprintf("%v", entry.IsPrivate()),
				fmt.Sprintf("%v", entry.IsRemote()),
				entry.LookupKey(),
			})
		}
		table.Render()
	},
}
