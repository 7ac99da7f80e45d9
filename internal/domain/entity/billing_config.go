package entity

import "strings"

// Proveedores de transmisión soportados.
const (
	ProviderFEG        = "FEG"         // gateway propio (API REST con Bearer token)
	ProviderCustom     = "CUSTOM"      // proveedor HTTP genérico
	ProviderDIANDirect = "DIAN_DIRECT" // SOAP directo al WS de la DIAN
	ProviderAlegra     = "ALEGRA"      // Alegra (SaaS, Basic auth)
)

// Ambientes DIAN.
const (
	EnvironmentProduction = "production"
	EnvironmentTest       = "test"
)

// ElectronicBillingConfig agrupa todo lo que el motor necesita para transmitir.
// La suministra el almacén de configuración externo; el motor solo la lee.
type ElectronicBillingConfig struct {
	Provider    string            `json:"provider"`
	Environment string            `json:"environment"` // production | test (vacío = test)
	Issuer      Issuer            `json:"issuer"`
	Resolution  BillingResolution `json:"resolution"`

	// Credenciales de software para el modo directo (habilitación DIAN).
	SoftwareID   string `json:"software_id,omitempty"`
	SoftwarePIN  string `json:"software_pin,omitempty"`
	TechnicalKey string `json:"technical_key,omitempty"` // clave técnica de la resolución
	TestSetID    string `json:"test_set_id,omitempty"`

	// Certificado PKCS#12 y su contraseña. Nunca se serializa ni se registra en logs.
	Certificate         []byte `json:"-"`
	CertificatePassword string `json:"-"`

	// Gateway FEG.
	FEGURL   string `json:"feg_url,omitempty"`
	FEGToken string `json:"-"`

	// Alegra.
	AlegraEmail   string `json:"alegra_email,omitempty"`
	AlegraToken   string `json:"-"`
	AlegraBaseURL string `json:"alegra_base_url,omitempty"`

	// Proveedor genérico.
	APIURL string `json:"api_url,omitempty"`
	APIKey string `json:"-"`
}

// NormalizedProvider devuelve el proveedor en mayúsculas y sin espacios.
func (c *ElectronicBillingConfig) NormalizedProvider() string {
	return strings.ToUpper(strings.TrimSpace(c.Provider))
}

// IsProduction indica si la configuración apunta al ambiente de producción.
func (c *ElectronicBillingConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

// EnvironmentCode devuelve el código DIAN de ambiente: "1" producción, "2" pruebas.
func (c *ElectronicBillingConfig) EnvironmentCode() string {
	if c.IsProduction() {
		return "1"
	}
	return "2"
}
