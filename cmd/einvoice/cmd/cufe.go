package cmd

import (
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"
	"github.com/spf13/cobra"
)

var showInput bool

var cufeCmd = &cobra.Command{
	Use:   "cufe <factura.json>",
	Short: "Calcula el CUFE de la factura",
	Long: `Calcula el CUFE (SHA-384) con la clave técnica de config.technical_key.
Sin clave técnica devuelve el CUFE simulado. Con --show-input imprime además la cadena
concatenada que se hashea, útil para comparar con el validador de la DIAN.`,
	Args: cobra.ExactArgs(1),
	RunE: runCufe,
}

func init() {
	rootCmd.AddCommand(cufeCmd)

	cufeCmd.Flags().BoolVar(&showInput, "show-input", false, "Imprimir la cadena de entrada del hash")
}

func runCufe(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	cufe, err := domaindian.CalculateCUFE(doc.Invoice, doc.Config)
	if err != nil {
		return err
	}
	out := map[string]any{
		"cufe":      cufe,
		"simulated": dian.IsSimulatedCufe(cufe),
	}
	if showInput && !dian.IsSimulatedCufe(cufe) {
		input, err := dian.NewCufeCalculatorService().Concatenate(domaindian.CufeParams(doc.Invoice, doc.Config))
		if err != nil {
			return err
		}
		out["input"] = input
	}
	return printJSON(cmd, out)
}
