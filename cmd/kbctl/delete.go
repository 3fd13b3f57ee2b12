package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [documentId]",
		Short: "Remove a document and all of its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, found, err := c.kb.DeleteDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("document %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s (%d chunks)\n", args[0], removed)
			return nil
		},
	}
}
