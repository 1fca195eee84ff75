/*
Copyright © 2021 Edmond Cotterell

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
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	isDevEnv bool

	yellow       = color.New(color.FgYellow).SprintFunc()
	red          = color.New(color.FgRed).SprintFunc()
	warningLabel = yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd = createRootCmd()
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "safetrip",
		Short: `safetrip keeps track of your trips and lets the people you trust
follow along.

It runs the safetrip API server, which stores trips & contacts, and texts
your emergency contacts when you raise a panic alert.`,
	}

	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

// loadDotEnv reads secrets e.g. TWILIO_AUTH_TOKEN from a .env file in the current
// directory, if there's one. Values already in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red(format), a...)
}
