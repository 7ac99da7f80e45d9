package cmd

import (
	"fmt"

	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <factura.json>",
	Short: "Valida la factura y reporta inconsistencias en los totales",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	result := domaindian.Validate(doc.Invoice)
	warnings := domaindian.ConsistencyIssues(doc.Invoice)
	if err := printJSON(cmd, map[string]any{
		"valid":    result.Valid,
		"errors":   result.Errors,
		"warnings": warnings,
	}); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("factura inválida: %d error(es)", len(result.Errors))
	}
	return nil
}
