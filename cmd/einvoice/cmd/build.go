package cmd

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	infradian "github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian/signer"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"
	"github.com/spf13/cobra"
)

var outputDir string

var buildCmd = &cobra.Command{
	Use:   "build <factura.json>",
	Short: "Genera el XML UBL firmado y el ZIP para la DIAN",
	Long: `Ejecuta validación, CUFE, construcción UBL 2.1, firma y empaquetado sin transmitir.
Con --cert firma XAdES-BES; sin certificado usa la firma de prueba, que la DIAN rechaza.

Escribe en el directorio de salida {NIT}{prefijo}{número}.xml y su .zip.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directorio de salida")
}

func runBuild(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	if err := domaindian.Validate(doc.Invoice).Err(); err != nil {
		return err
	}
	cert, err := readCertificate()
	if err != nil {
		return err
	}

	cufe, err := domaindian.CalculateCUFE(doc.Invoice, doc.Config)
	if err != nil {
		return err
	}
	xmlDoc, err := infradian.NewXMLBuilderService().Build(&infradian.InvoiceBuildContext{
		Invoice: doc.Invoice,
		Config:  doc.Config,
		CUFE:    cufe,
	})
	if err != nil {
		return err
	}

	var signed []byte
	if len(cert) > 0 {
		signed, err = signer.NewXAdESSigner().Sign(xmlDoc, cert, certPassword)
	} else {
		signed, err = signer.NewPlaceholderSigner().Sign(xmlDoc, nil, "")
	}
	if err != nil {
		return err
	}

	xmlName, zipName := infradian.ArchiveFileNames(doc.Config, doc.Invoice)
	zipB64, err := infradian.PackageAt(signed, xmlName, time.Now())
	if err != nil {
		return err
	}
	zipBytes, err := base64.StdEncoding.DecodeString(zipB64)
	if err != nil {
		return fmt.Errorf("decodificar zip: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	xmlPath := filepath.Join(outputDir, xmlName)
	zipPath := filepath.Join(outputDir, zipName)
	if err := os.WriteFile(xmlPath, signed, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(zipPath, zipBytes, 0o644); err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"cufe":             cufe,
		"placeholder":      len(cert) == 0,
		"xml_file":         xmlPath,
		"zip_file":         zipPath,
		"qr":               infradian.QRContent(doc.Invoice, doc.Config, cufe),
		"verification_url": dian.VerificationURL(cufe, doc.Config.IsProduction()),
	})
}
