// Copyright 2016 Qubit Digital Ltd.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package tsload is a collection of tools for loading flat binary
// time-series streams into databases and wire formats.

package completion

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/QubitProducts/tsload/cmd/tsload/root"
)

func init() {
	root.RootCmd.AddCommand(compCmd)
}

var compCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish]",
	Short:     "write a shell completion script to stdout",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish"},
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := "bash"
		if len(args) == 1 {
			shell = args[0]
		}
		switch shell {
		case "bash":
			return root.RootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return root.RootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return root.RootCmd.GenFishCompletion(os.Stdout, true)
		}
		return errors.Errorf("unknown shell %q", shell)
	},
}
