package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	certPath     string
	certPassword string
)

var rootCmd = &cobra.Command{
	Use:   "einvoice",
	Short: "Herramientas locales de facturación electrónica DIAN (UBL 2.1)",
	Long: `einvoice ejecuta sin red las etapas locales del motor de transmisión.

Comandos:
  - certcheck: verifica un certificado .p12 y su contraseña
  - validate:  valida una factura antes de transmitirla
  - cufe:      calcula el CUFE (SHA-384) de una factura
  - build:     genera el XML UBL firmado y el ZIP listos para la DIAN
  - token:     emite un token JWT para los clientes del API

El archivo de entrada es JSON con la forma {"invoice": {...}, "config": {...}}.

Ejemplos:
  einvoice certcheck --cert empresa.p12 --password secreto
  einvoice cufe factura.json
  einvoice build factura.json --cert empresa.p12 --password secreto -o out/`,
	Version:      version,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&certPath, "cert", "", "Certificado PKCS#12 (env: DIAN_CERT_PATH)")
	rootCmd.PersistentFlags().StringVar(&certPassword, "password", "", "Contraseña del certificado (env: DIAN_CERT_PASSWORD)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if certPath == "" {
		certPath = os.Getenv("DIAN_CERT_PATH")
	}
	if certPassword == "" {
		certPassword = os.Getenv("DIAN_CERT_PASSWORD")
	}
}

// document archivo de entrada de los comandos.
type document struct {
	Invoice *entity.InvoiceData             `json:"invoice"`
	Config  *entity.ElectronicBillingConfig `json:"config"`
}

func readDocument(path string) (*document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s no es un documento válido: %w", path, err)
	}
	if doc.Invoice == nil {
		return nil, fmt.Errorf("%s: falta invoice", path)
	}
	if doc.Config == nil {
		doc.Config = &entity.ElectronicBillingConfig{}
	}
	return &doc, nil
}

func readCertificate() ([]byte, error) {
	if certPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("leer certificado: %w", err)
	}
	return data, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
