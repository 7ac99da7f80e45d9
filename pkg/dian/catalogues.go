// Package dian contiene catálogos y validaciones alineados al Anexo Técnico
// de Factura Electrónica de Venta DIAN (Colombia) v1.9.
package dian

// =============================================================================
// Tabla 17 - Tipos de Responsabilidad Fiscal (Anexo 1.9 - 13.2.7.1)
// En el anexo figuran como "0-XX"; en sistemas se usa también "O-XX" (letra O).
// =============================================================================

const (
	TaxLevelGranContribuyente  = "O-13"    // Gran contribuyente
	TaxLevelAutorretenedor     = "O-15"    // Autorretenedor
	TaxLevelAgenteRetencionIVA = "O-23"    // Agente de retención en el impuesto sobre las ventas
	TaxLevelRegimenSimple      = "O-47"    // Régimen Simple de Tributación – SIMPLE
	TaxLevelNoAplicaOtros      = "R-99-PN" // No Aplica - Otros
)

// ValidFiscalResponsibilityCodes contiene los códigos de responsabilidad fiscal válidos (DIAN).
var ValidFiscalResponsibilityCodes = map[string]bool{
	TaxLevelGranContribuyente:  true,
	TaxLevelAutorretenedor:     true,
	TaxLevelAgenteRetencionIVA: true,
	TaxLevelRegimenSimple:      true,
	TaxLevelNoAplicaOtros:      true,
	"0-13": true, "0-15": true, "0-23": true, "0-47": true, // formato con cero
}

// FiscalResponsibilityOrDefault devuelve code si es válido; si no, R-99-PN.
func FiscalResponsibilityOrDefault(code string) string {
	if ValidFiscalResponsibilityCodes[code] {
		return code
	}
	return TaxLevelNoAplicaOtros
}

// =============================================================================
// Tabla 6 - Unidades de Medida (Anexo 1.9 - 13.3.6 @unitCode)
// =============================================================================

const (
	UnitUnit     = "94"  // Unidad
	UnitKilogram = "KGM" // Kilogramo
	UnitLitre    = "LTR" // Litro
	UnitHour     = "HUR" // Hora
)

// =============================================================================
// Tabla 11 - Tipos de Impuesto (Anexo 1.9 - 13.2.2)
// =============================================================================

const (
	TaxCodeIVA = "01" // IVA
	TaxCodeICA = "03" // ICA (y demás impuestos agrupados en la cadena CUFE)
	TaxCodeINC = "04" // Impuesto Nacional al Consumo
)

// TaxSchemeNames nombre del esquema tributario por código.
var TaxSchemeNames = map[string]string{
	TaxCodeIVA: "IVA",
	TaxCodeICA: "ICA",
	TaxCodeINC: "INC",
}

// =============================================================================
// Tabla 3 - Tipos de identificación (Anexo 1.9 - 13.2.1)
// =============================================================================

const (
	IdentificationTypeNIT = "31" // NIT - requiere dígito de verificación
	IdentificationTypeCC  = "13" // Cédula de ciudadanía
)

// =============================================================================
// Tipos de organización (AdditionalAccountID, Tabla 4)
// =============================================================================

const (
	OrganizationLegalEntity   = "1" // Persona jurídica
	OrganizationNaturalPerson = "2" // Persona natural
)

// =============================================================================
// Constantes del documento
// =============================================================================

const (
	CountryCodeColombia = "CO"
	CurrencyCOP         = "COP"

	// NIT de la DIAN como proveedor de autorización (sts:AuthorizationProviderID).
	AuthorizationProviderNIT = "800197268"

	// Agencia DIAN en los atributos schemeAgencyID.
	SchemeAgencyID   = "195"
	SchemeAgencyName = "CO, DIAN (Dirección de Impuestos y Aduanas Nacionales)"
)

// URLs del catálogo DIAN para consultar el documento por CUFE.
const (
	VerificationURLProd = "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey="
	VerificationURLTest = "https://catalogo-vpfe-hab.dian.gov.co/document/searchqr?documentkey="
)

// VerificationURL devuelve la URL pública de consulta del documento.
func VerificationURL(cufe string, production bool) string {
	if production {
		return VerificationURLProd + cufe
	}
	return VerificationURLTest + cufe
}

// =============================================================================
// Tabla 26/27 - Forma y medio de pago (Anexo 1.9 - 13.3.4)
// =============================================================================

const (
	PaymentFormContado    = "1"  // Contado
	PaymentFormCredito    = "2"  // Crédito
	PaymentMethodEfectivo = "10" // Efectivo
)

// =============================================================================
// Cabecera del documento (Anexo 1.9 - 13.1)
// =============================================================================

const (
	UBLVersion            = "UBL 2.1"
	CustomizationStandard = "10" // Operación estándar
	ProfileInvoice        = "DIAN 2.1: Factura Electrónica de Venta"
	CUFESchemeName        = "CUFE-SHA384"
	TaxLevelListName      = "48"
	DefaultInvoiceNote    = "Factura electrónica de venta"
)
