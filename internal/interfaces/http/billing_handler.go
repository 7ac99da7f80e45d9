package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"
	"github.com/rs/zerolog"
)

// billingEngine contrato mínimo del orquestador; lo implementa *billing.Orchestrator.
type billingEngine interface {
	SendToElectronicBilling(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig) *entity.ElectronicBillingResponse
	CheckStatus(ctx context.Context, trackID string, cfg *entity.ElectronicBillingConfig) *entity.ElectronicBillingResponse
}

// SendRequest cuerpo de POST /api/electronic-billing/send.
// Config es opcional: sus campos no vacíos reemplazan los del servidor.
// Los secretos (certificado, tokens, api key) y las URL o cuentas a las que se envían
// solo vienen de la configuración del servidor.
type SendRequest struct {
	Invoice *entity.InvoiceData             `json:"invoice"`
	Config  *entity.ElectronicBillingConfig `json:"config,omitempty"`
}

// ValidateResponse resultado de POST /api/electronic-billing/validate.
type ValidateResponse struct {
	domaindian.ValidationResult
	Warnings []string `json:"warnings"`
}

// BillingHandler expone el motor de transmisión por HTTP (protegido).
type BillingHandler struct {
	engine   billingEngine
	defaults entity.ElectronicBillingConfig
	log      zerolog.Logger
}

// NewBillingHandler construye el handler con la configuración por defecto del servidor.
func NewBillingHandler(engine billingEngine, defaults *entity.ElectronicBillingConfig, log zerolog.Logger) *BillingHandler {
	h := &BillingHandler{engine: engine, log: log}
	if defaults != nil {
		h.defaults = *defaults
	}
	return h
}

// Send transmite la factura. Responde 200 con ElectronicBillingResponse siempre que el motor se ejecute.
// POST /api/electronic-billing/send
func (h *BillingHandler) Send(c *fiber.Ctx) error {
	var in SendRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Invoice == nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "invoice requerido"})
	}
	cfg := h.configFor(in.Config)
	if !issuerAllowed(c, cfg) {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Code: "ISSUER_MISMATCH", Message: "el token no permite facturar con el NIT " + cfg.Issuer.NIT})
	}

	resp := h.engine.SendToElectronicBilling(c.UserContext(), in.Invoice, cfg)
	h.log.Info().
		Str("client", GetClientID(c)).
		Str("invoice", in.Invoice.Number).
		Str("provider", cfg.NormalizedProvider()).
		Bool("success", resp.Success).
		Str("status", resp.Status).
		Msg("http: envío de factura electrónica")
	return c.JSON(resp)
}

// Validate ejecuta la validación previa sin transmitir.
// POST /api/electronic-billing/validate
func (h *BillingHandler) Validate(c *fiber.Ctx) error {
	var in SendRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	warnings := domaindian.ConsistencyIssues(in.Invoice)
	if warnings == nil {
		warnings = []string{}
	}
	return c.JSON(ValidateResponse{ValidationResult: domaindian.Validate(in.Invoice), Warnings: warnings})
}

// Status consulta el estado de un envío por track id (DIAN directo).
// GET /api/electronic-billing/status/:trackId?provider=&environment=
func (h *BillingHandler) Status(c *fiber.Ctx) error {
	trackID := strings.TrimSpace(c.Params("trackId"))
	if trackID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "trackId requerido"})
	}
	cfg := h.configFor(&entity.ElectronicBillingConfig{
		Provider:    c.Query("provider"),
		Environment: c.Query("environment"),
	})
	return c.JSON(h.engine.CheckStatus(c.UserContext(), trackID, cfg))
}

// configFor combina la configuración del servidor con la de la petición.
// feg_url, alegra_email, alegra_base_url y api_url no se toman de la petición:
// viajan junto a un secreto del servidor.
func (h *BillingHandler) configFor(req *entity.ElectronicBillingConfig) *entity.ElectronicBillingConfig {
	cfg := h.defaults
	if req == nil {
		return &cfg
	}
	override(&cfg.Provider, req.Provider)
	override(&cfg.Environment, req.Environment)
	if strings.TrimSpace(req.Issuer.NIT) != "" {
		cfg.Issuer = req.Issuer
	}
	if strings.TrimSpace(req.Resolution.Number) != "" {
		cfg.Resolution = req.Resolution
	}
	override(&cfg.SoftwareID, req.SoftwareID)
	override(&cfg.SoftwarePIN, req.SoftwarePIN)
	override(&cfg.TechnicalKey, req.TechnicalKey)
	override(&cfg.TestSetID, req.TestSetID)
	return &cfg
}

func override(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// issuerAllowed un token atado a un emisor solo factura con ese NIT.
func issuerAllowed(c *fiber.Ctx, cfg *entity.ElectronicBillingConfig) bool {
	claims := GetClaims(c)
	if claims == nil || claims.IssuerNIT == "" {
		return true
	}
	return dian.BaseNIT(claims.IssuerNIT) == dian.BaseNIT(cfg.Issuer.NIT)
}
