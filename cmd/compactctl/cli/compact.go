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

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/nimtable/bergloom-go/cmd/compactctl/tui"
	"github.com/nimtable/bergloom-go/cmn/config"
	"github.com/nimtable/bergloom-go/iceberg"
)

var fullFlag bool

var compactCmd = &cobra.Command{
	Use:   "compact <namespace>.<table>",
	Short: "Run one rewrite-files compaction against a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, ok := iceberg.ParseTableIdent(args[0])
		if !ok {
			return fmt.Errorf("invalid table identifier %q, expected namespace.table", args[0])
		}

		ctx := cmd.Context()
		comp, err := buildCompaction(ctx, config.Get())
		if err != nil {
			return err
		}

		run := comp.Compact
		if fullFlag {
			run = comp.FullCompact
		}

		snap, err := tui.RunWithProgress(ctx, ident.String(), func() (any, error) {
			return run(ctx, ident)
		})
		if err != nil {
			color.Red.Println("compaction failed:", err)
			return err
		}

		color.Green.Println("compaction committed")
		fmt.Printf("%+v\n", snap)
		return nil
	},
}

func init() {
	compactCmd.Flags().BoolVar(&fullFlag, "full", false, "rewrite every data file regardless of pending deletes")
}
