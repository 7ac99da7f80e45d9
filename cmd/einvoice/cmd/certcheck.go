package cmd

import (
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian/signer"
	"github.com/spf13/cobra"
)

var certcheckCmd = &cobra.Command{
	Use:   "certcheck",
	Short: "Verifica el certificado de firma y su contraseña",
	Long: `Decodifica el contenedor PKCS#12 con la contraseña indicada y muestra sujeto,
emisor, serial, vigencia y cadena. Nunca imprime la llave privada.`,
	Args: cobra.NoArgs,
	RunE: runCertcheck,
}

func init() {
	rootCmd.AddCommand(certcheckCmd)
}

func runCertcheck(cmd *cobra.Command, _ []string) error {
	if certPath == "" {
		return fmt.Errorf("indique el certificado con --cert o DIAN_CERT_PATH")
	}
	data, err := readCertificate()
	if err != nil {
		return err
	}
	creds, err := signer.LoadFromP12Bytes(data, certPassword)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, creds.Summary())
	now := time.Now()
	switch {
	case now.Before(creds.Leaf.NotBefore):
		fmt.Fprintln(out, "Estado:   aún no vigente")
	case now.After(creds.Leaf.NotAfter):
		fmt.Fprintln(out, "Estado:   vencido")
	default:
		fmt.Fprintf(out, "Estado:   vigente (%d días restantes)\n", int(creds.Leaf.NotAfter.Sub(now).Hours()/24))
	}
	return nil
}
