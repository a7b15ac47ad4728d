/*
 * Copyright 2025 BergLoom
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"github.com/spf13/cobra"

	"github.com/nimtable/bergloom-go/cmn/config"
	"github.com/nimtable/bergloom-go/cmn/nlog"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "compactctl",
	Short: "Drive Iceberg table compaction",
	Long: `compactctl plans, executes, and commits a rewrite-files compaction
against one Iceberg table: reads the current snapshot's data and delete
files, drops rows covered by a delete, and writes the survivors back as
fewer, larger data files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		nlog.SetLevel(cfg.Log.Level)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a compactctl config file")
	rootCmd.AddCommand(compactCmd, expireSnapshotCmd, serveCmd)
}
