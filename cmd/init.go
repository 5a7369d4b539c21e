/*
Copyright © 2021 NAME HERE <EMAIL ADDRESS>

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
	"errors"
	"fmt"
	"os"

	"github.com/choiway/contactsheet/internal/config"
	"github.com/choiway/contactsheet/internal/index"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes contactsheet for the current directory",
	Long: `Creates the .contactsheet directory with an empty SQLite index, so metadata
runs are recorded, and writes a starter contactsheet.yaml.

An existing index is kept unless --force is given. An existing config file is
never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		out := cmd.OutOrStdout()

		dbPath := config.DefaultIndexPath()
		if force {
			logger.Debug("Removing existing index")
			if err := os.RemoveAll(config.StateDir); err != nil {
				return err
			}
		}

		store, err := index.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Index ready at %s\n", dbPath)

		f, err := os.OpenFile(config.LocalConfigName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		switch {
		case errors.Is(err, os.ErrExist):
			fmt.Fprintf(out, "Keeping existing %s\n", config.LocalConfigName)
			return nil
		case err != nil:
			return err
		}
		defer f.Close()

		if _, err := f.Write(config.DefaultBytes()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", config.LocalConfigName)
		return f.Close()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolP("force", "f", false, "recreate the index, dropping recorded runs")
}
