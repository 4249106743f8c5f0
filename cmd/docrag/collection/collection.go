// Package collectioncmder provides the collection command for managing
// vector collections on a running docrag server.
package collectioncmder

import (
	"github.com/spf13/cobra"
)

const collectionLongDesc string = `Manage vector collections on a running docrag API server.

Examples:
  docrag collection create manuals
  docrag collection create manuals --embedding-dimensions 1024`

const collectionShortDesc string = "Manage vector collections"

func NewCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: collectionShortDesc,
		Long:  collectionLongDesc,
	}

	cmd.AddCommand(newCreateCmd())

	return cmd
}
