package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookshare/internal/inventory"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Legacy single-step request approval",
	Long: `Approve or reject a request without a meeting schedule. Approval counts one
unused test out of the book and does not reserve it.`,
}

var approveInventoryCmd = &cobra.Command{
	Use:   "approve [request-id]",
	Short: "Approve a request and count down the book's unused tests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := inventory.NewHelper(current.store, current.cfg.LoanPeriod, current.logger)
		if err := h.ApproveRequestAndAdjustInventory(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Request %s approved\n", args[0])
		return nil
	},
}

var rejectInventoryCmd = &cobra.Command{
	Use:   "reject [request-id]",
	Short: "Reject a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := inventory.NewHelper(current.store, current.cfg.LoanPeriod, current.logger)
		if err := h.RejectRequest(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Request %s rejected\n", args[0])
		return nil
	},
}

func init() {
	inventoryCmd.AddCommand(approveInventoryCmd, rejectInventoryCmd)
}
