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
	"fmt"
	"strconv"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/nimtable/bergloom-go/cmn/config"
	"github.com/nimtable/bergloom-go/iceberg"
)

var expireSnapshotCmd = &cobra.Command{
	Use:   "expire-snapshot <namespace>.<table> <older_than_snapshot_id>",
	Short: "Expire snapshots up to and including the given snapshot id (the current snapshot is kept)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, ok := iceberg.ParseTableIdent(args[0])
		if !ok {
			return fmt.Errorf("invalid table identifier %q, expected namespace.table", args[0])
		}
		olderThan, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot id %q: %w", args[1], err)
		}

		ctx := cmd.Context()
		comp, err := buildCompaction(ctx, config.Get())
		if err != nil {
			return err
		}
		if err := comp.ExpireSnapshot(ctx, ident, olderThan); err != nil {
			color.Red.Println("expire-snapshot failed:", err)
			return err
		}
		color.Green.Println("snapshots expired")
		return nil
	},
}
