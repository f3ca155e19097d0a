// Copyright 2024 The Vanta Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"os"

	"github.com/Westmist/Vanta-sub000/pkg/cmd/bench"
	"github.com/Westmist/Vanta-sub000/pkg/cmd/server"
	"github.com/Westmist/Vanta-sub000/pkg/cmd/util"
	"github.com/Westmist/Vanta-sub000/pkg/cmd/version"
	"github.com/spf13/cobra"
)

// NewCmd creates the root command.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vanta",
		Short: "Vanta actor runtime",
		Long:  `Vanta hosts the actors of game servers on an elastic or sharded executor`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// AddVantaCommandTo adds the vanta commands to cmd.
func AddVantaCommandTo(cmd *cobra.Command) {
	cmd.AddCommand(server.NewCmdServer())
	cmd.AddCommand(bench.NewCmdBench())
	cmd.AddCommand(version.NewCmdVersion())
}

// Run runs the root command.
func Run() {
	cmd := NewCmd()

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	AddVantaCommandTo(cmd)

	util.CheckErr(cmd.Execute())
}
