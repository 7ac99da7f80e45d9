package dian

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"
)

// Package empaqueta el XML firmado en un ZIP en memoria y lo devuelve en Base64,
// listo para el campo contentFile del WS DIAN. La fecha de la entrada es la actual.
func Package(signedXML []byte, fileName string) (string, error) {
	return PackageAt(signedXML, fileName, time.Now())
}

// PackageAt es Package con la fecha de la entrada fija: misma entrada, mismo ZIP byte a byte.
func PackageAt(signedXML []byte, fileName string, modified time.Time) (string, error) {
	zipBytes, err := CompressXMLToZip(signedXML, fileName, modified)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(zipBytes), nil
}

// CompressXMLToZip empaqueta el XML firmado en un archivo ZIP en memoria.
// La DIAN exige que el ZIP contenga un único archivo con el nombre:
//
//	{NIT_OFE}{PREFIX}{NUMBER}.xml  (sin guiones ni espacios)
func CompressXMLToZip(xmlBytes []byte, xmlFilename string, modified time.Time) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("zip: XML vacío")
	}
	if strings.TrimSpace(xmlFilename) == "" {
		return nil, fmt.Errorf("zip: nombre de archivo vacío")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     xmlFilename,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", xmlFilename, err)
	}
	if _, err := fw.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveFileNames genera los nombres de archivo requeridos por la DIAN para el ZIP y el XML interno.
// Formato: {NIT_OFE}{PREFIX}{NUMBER} (NIT sin DV). Si el número ya trae el prefijo no se repite.
// Ejemplo: 900123456SETP990000001
func ArchiveFileNames(cfg *entity.ElectronicBillingConfig, inv *entity.InvoiceData) (xmlName, zipName string) {
	nit := dian.BaseNIT(cfg.Issuer.NIT)
	prefix := strings.TrimSpace(cfg.Resolution.Prefix)
	if prefix == "" {
		prefix = strings.TrimSpace(inv.Prefix)
	}
	number := strings.ReplaceAll(strings.TrimSpace(inv.Number), " ", "")
	if prefix != "" && strings.HasPrefix(number, prefix) {
		prefix = ""
	}
	base := nit + prefix + strings.ReplaceAll(number, "-", "")
	return base + ".xml", base + ".zip"
}
