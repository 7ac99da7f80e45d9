// Cálculo del CUFE (Código Único de Factura Electrónica) según Anexo Técnico DIAN.
// Algoritmo: SHA-384 sobre la cadena de concatenación en el orden estricto definido por la DIAN.

package dian

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Prefijo del CUFE simulado cuando no hay clave técnica configurada.
const SimulatedCufePrefix = "SIMULATED-CUFE-"

var whitespace = regexp.MustCompile(`\s+`)

// CufeParams contiene los datos para calcular el CUFE (orden estricto DIAN).
// La capa de dominio lo arma desde InvoiceData + ElectronicBillingConfig.
type CufeParams struct {
	NumFac    string          // Número de factura (prefijo + número, sin espacios)
	FecFac    string          // Fecha emisión YYYY-MM-DD
	HorFac    string          // Hora emisión HH:mm:ss-05:00
	ValFac    decimal.Decimal // Subtotal antes de impuestos
	ValImp1   decimal.Decimal // Total IVA (código 01)
	ValImp2   decimal.Decimal // Total INC (código 04)
	ValImp3   decimal.Decimal // Total otros impuestos (código 03)
	ValTot    decimal.Decimal // Total a pagar
	NitOFE    string          // NIT emisor, sin DV
	NumAdq    string          // Documento adquiriente, sin DV
	ClTec     string          // Clave técnica de la resolución
	TipoAmbie string          // "1" = producción, "2" = habilitación
}

// CufeCalculatorService calcula el CUFE según el Anexo Técnico DIAN.
type CufeCalculatorService struct{}

// NewCufeCalculatorService crea el servicio.
func NewCufeCalculatorService() *CufeCalculatorService {
	return &CufeCalculatorService{}
}

// Calculate genera el CUFE a partir de parámetros ya preparados.
// Hash: SHA-384, salida en hexadecimal (minúsculas).
func (s *CufeCalculatorService) Calculate(p *CufeParams) (string, error) {
	cadena, err := s.Concatenate(p)
	if err != nil {
		return "", err
	}
	hash := sha512.Sum384([]byte(cadena))
	return hex.EncodeToString(hash[:]), nil
}

// Concatenate devuelve la cadena exacta que se hashea. Se expone para diagnóstico
// cuando la DIAN rechaza por CUFE (regla FAD06).
// Orden: NumFac + FecFac + HorFac + ValFac + 01 + ValImp1 + 04 + ValImp2 + 03 + ValImp3 + ValTot + NitOFE + NumAdq + ClTec + TipoAmbie.
func (s *CufeCalculatorService) Concatenate(p *CufeParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("dian: CufeParams es obligatorio")
	}

	numFac := whitespace.ReplaceAllString(strings.TrimSpace(p.NumFac), "")
	if numFac == "" {
		return "", fmt.Errorf("dian: NumFac es obligatorio")
	}
	if p.FecFac == "" {
		return "", fmt.Errorf("dian: FecFac es obligatorio")
	}
	if p.HorFac == "" {
		return "", fmt.Errorf("dian: HorFac es obligatorio")
	}

	nitOfe := OnlyDigits(p.NitOFE)
	numAdq := OnlyDigits(p.NumAdq)
	if nitOfe == "" {
		return "", fmt.Errorf("dian: NitOFE es obligatorio para el CUFE")
	}
	if numAdq == "" {
		return "", fmt.Errorf("dian: NumAdq es obligatorio para el CUFE")
	}
	if p.ClTec == "" {
		return "", fmt.Errorf("dian: ClTec es obligatoria para el CUFE")
	}
	tipoAmb := p.TipoAmbie
	if tipoAmb == "" {
		tipoAmb = "2"
	}

	return numFac +
		p.FecFac +
		p.HorFac +
		FormatAmount(p.ValFac) +
		TaxCodeIVA + FormatAmount(p.ValImp1) +
		TaxCodeINC + FormatAmount(p.ValImp2) +
		TaxCodeICA + FormatAmount(p.ValImp3) +
		FormatAmount(p.ValTot) +
		nitOfe +
		numAdq +
		p.ClTec +
		tipoAmb, nil
}

// FormatAmount formatea un valor para CUFE y XML: sin separador de miles, punto decimal, 2 decimales.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// SoftwareSecurityCode calcula sts:SoftwareSecurityCode = SHA384(SoftwareID + PIN + NumFac) en hex.
// No confundir con el CUFE.
func SoftwareSecurityCode(softwareID, pin, numFac string) string {
	hash := sha512.Sum384([]byte(softwareID + pin + numFac))
	return hex.EncodeToString(hash[:])
}

// IsSimulatedCufe indica si el CUFE es el marcador generado sin clave técnica.
func IsSimulatedCufe(cufe string) bool {
	return strings.HasPrefix(cufe, SimulatedCufePrefix)
}
