// SPDX-License-Identifier: Apache-2.0

package script

import (
	"github.com/spf13/cobra"
)

// NewScriptCmd creates the script command group
func NewScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Work with existing FreeCAD macros",
	}
	cmd.AddCommand(newExecuteCmd())
	return cmd
}
