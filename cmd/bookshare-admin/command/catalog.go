package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookshare/database"
)

var importChapter string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog maintenance",
}

var importCatalogCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Import a JSON array of books into one chapter",
	Long: `Reads a JSON array of catalog entries and creates them as available books
in the chapter given by --chapter. Nothing is written if any entry is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()

		n, err := database.ImportCatalog(cmd.Context(), current.store, importChapter, f, current.logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d books into %s\n", n, importChapter)
		return nil
	},
}

func init() {
	importCatalogCmd.Flags().StringVar(&importChapter, "chapter", "", "chapter location the books belong to")
	importCatalogCmd.MarkFlagRequired("chapter")
	catalogCmd.AddCommand(importCatalogCmd)
}
