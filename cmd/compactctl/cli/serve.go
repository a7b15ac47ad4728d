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
	"github.com/nimtable/bergloom-go/rpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP compaction service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		comp, err := buildCompaction(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		server := rpc.NewServer(comp)
		nlog.Infof("serve: listening on %s", cfg.Server.ListenAddr)
		return server.Run(cfg.Server.ListenAddr)
	},
}
