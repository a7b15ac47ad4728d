// Command compactctl drives Compaction from the shell: one-shot compact and
// expire-snapshot subcommands, and a serve subcommand that exposes the same
// operations over rpc.Server. Grounded on goarchive's cobra root command
// structure (cmd/goarchive/cmd/root.go: persistent --config flag,
// subcommand-per-verb layout).
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

package main

import (
	"os"

	"github.com/nimtable/bergloom-go/cmd/compactctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
