package providers

import (
	"encoding/json"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
)

// GatewayRequest cuerpo JSON que reciben los gateways REST (FEG y proveedor genérico).
type GatewayRequest struct {
	Invoice     *entity.InvoiceData      `json:"invoice"`
	Issuer      entity.Issuer            `json:"issuer"`
	Resolution  entity.BillingResolution `json:"resolution"`
	Environment string                   `json:"environment"`
	CUFE        string                   `json:"cufe,omitempty"`
}

// NewGatewayRequest arma el cuerpo común a partir de la factura y la configuración.
func NewGatewayRequest(inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) *GatewayRequest {
	env := entity.EnvironmentTest
	if cfg.IsProduction() {
		env = entity.EnvironmentProduction
	}
	return &GatewayRequest{
		Invoice:     inv,
		Issuer:      cfg.Issuer,
		Resolution:  cfg.Resolution,
		Environment: env,
		CUFE:        cufe,
	}
}

// GatewayResponse respuesta de los gateways REST; se mapea 1:1 a ElectronicBillingResponse.
type GatewayResponse struct {
	Success bool     `json:"success"`
	CUFE    string   `json:"cufe"`
	QRCode  string   `json:"qrCode"`
	PDFURL  string   `json:"pdfUrl"`
	XMLURL  string   `json:"xmlUrl"`
	TrackID string   `json:"trackId"`
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  Messages `json:"errors"`
}

// ParseGatewayResponse decodifica el cuerpo; ok=false si no es un JSON con la forma esperada.
func ParseGatewayResponse(body []byte) (*GatewayResponse, bool) {
	var gr GatewayResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, false
	}
	return &gr, true
}

// ToResponse mapea la respuesta del gateway. cufe es el calculado localmente,
// usado solo si el gateway no devuelve el suyo.
func (g *GatewayResponse) ToResponse(cufe string, raw []byte) *entity.ElectronicBillingResponse {
	status := NormalizeStatus(g.Status, g.Success)
	resp := &entity.ElectronicBillingResponse{
		Success:  g.Success && status != entity.StatusRejected,
		CUFE:     firstNonEmpty(g.CUFE, cufe),
		QRCode:   g.QRCode,
		PDFURL:   g.PDFURL,
		XMLURL:   g.XMLURL,
		TrackID:  g.TrackID,
		Status:   status,
		Message:  g.Message,
		Errors:   []string(g.Errors),
		Response: json.RawMessage(raw),
	}
	if status == entity.StatusRejected {
		resp.ErrorKind = entity.ErrorKindRejection
		if len(resp.Errors) == 0 && resp.Message != "" {
			resp.Errors = []string{resp.Message}
		}
	}
	if resp.Message == "" {
		resp.Message = DefaultMessage(status)
	}
	return resp
}

// NormalizeStatus lleva los estados de cada proveedor a ACCEPTED, REJECTED o PENDING.
// Sin estado reconocible decide success.
func NormalizeStatus(status string, success bool) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "ACCEPTED", "APPROVED", "AUTHORIZED", "SIGNED", "VALID":
		return entity.StatusAccepted
	case "REJECTED", "DENIED", "INVALID", "ERROR":
		return entity.StatusRejected
	case "PENDING", "PROCESSING", "IN_PROCESS", "SENT", "RECEIVED":
		return entity.StatusPending
	}
	if success {
		return entity.StatusAccepted
	}
	return entity.StatusRejected
}

// DefaultMessage mensaje por estado cuando el proveedor no envía uno.
func DefaultMessage(status string) string {
	switch status {
	case entity.StatusAccepted:
		return "Documento aceptado"
	case entity.StatusPending:
		return "Documento recibido, pendiente de validación"
	case entity.StatusRejected:
		return "Documento rechazado"
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
