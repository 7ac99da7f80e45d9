// Package direct transmite la factura directamente al web service de la DIAN:
// XML UBL 2.1 → firma XAdES → ZIP → SOAP.
package direct

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	infradian "github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian/signer"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/rs/zerolog"
)

var (
	_ providers.Provider      = (*Adapter)(nil)
	_ providers.StatusChecker = (*Adapter)(nil)
)

// Adapter proveedor DIAN_DIRECT.
type Adapter struct {
	builder     *infradian.XMLBuilderService
	signer      dian.Signer
	placeholder dian.Signer
	submitter   infradian.DIANSubmitter
	now         func() time.Time
	log         zerolog.Logger
}

// Option configura el adaptador.
type Option func(*Adapter)

// WithSigner reemplaza el firmador XAdES.
func WithSigner(s dian.Signer) Option {
	return func(a *Adapter) { a.signer = s }
}

// WithClock fija el reloj usado cuando la factura no trae fecha y hora de emisión.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New construye el adaptador sobre el cliente SOAP recibido.
func New(submitter infradian.DIANSubmitter, log zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		builder:     infradian.NewXMLBuilderService(),
		signer:      signer.NewXAdESSigner(),
		placeholder: signer.NewPlaceholderSigner(),
		submitter:   submitter,
		now:         time.Now,
		log:         log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name código del proveedor.
func (a *Adapter) Name() string { return entity.ProviderDIANDirect }

// Transmit genera, firma, empaqueta y envía el documento.
// Con CUFE simulado (sin clave técnica) responde sin tocar la red. En pruebas sin certificado
// firma con el placeholder y tampoco transmite: la DIAN rechazaría esa firma.
func (a *Adapter) Transmit(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) (*entity.ElectronicBillingResponse, error) {
	if dian.IsSimulatedCufe(cufe) {
		a.log.Warn().Str("invoice", inv.Number).Msg("dian: CUFE simulado, no se transmite")
		return &entity.ElectronicBillingResponse{
			Success: true,
			CUFE:    cufe,
			Status:  entity.StatusPending,
			Message: "CUFE simulado: sin clave técnica el documento no se transmite a la DIAN",
		}, nil
	}
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}

	xmlDoc, err := a.builder.Build(&infradian.InvoiceBuildContext{Invoice: inv, Config: cfg, CUFE: cufe})
	if err != nil {
		return nil, err
	}

	placeholder := len(cfg.Certificate) == 0
	signed, err := a.sign(xmlDoc, cfg, placeholder)
	if err != nil {
		return nil, err
	}

	xmlName, zipName := infradian.ArchiveFileNames(cfg, inv)
	content, err := infradian.PackageAt(signed, xmlName, a.issueInstant(inv))
	if err != nil {
		return nil, fmt.Errorf("dian: empaquetar %s: %w", zipName, err)
	}

	base := &entity.ElectronicBillingResponse{
		CUFE:            cufe,
		QRCode:          infradian.QRContent(inv, cfg, cufe),
		VerificationURL: dian.VerificationURL(cufe, cfg.IsProduction()),
	}

	if placeholder {
		a.log.Warn().Str("invoice", inv.Number).Str("zip", zipName).Int("zip_base64_len", len(content)).
			Msg("dian: firma placeholder, documento generado sin transmitir")
		base.Success = true
		base.Status = entity.StatusPending
		base.Message = "Documento generado con firma de prueba no conforme; no se transmitió a la DIAN"
		base.Response = map[string]string{"xml_file": xmlName, "zip_file": zipName}
		return base, nil
	}

	a.log.Info().Str("invoice", inv.Number).Str("zip", zipName).Bool("production", cfg.IsProduction()).
		Msg("dian: enviando documento")
	result, err := a.submitter.SubmitZip(ctx, infradian.SubmitRequest{
		FileName:    zipName,
		ContentFile: content,
		Production:  cfg.IsProduction(),
		TestSetID:   cfg.TestSetID,
	})
	if err != nil {
		return nil, err
	}
	return fillFromResult(base, result), nil
}

// CheckStatus consulta GetStatusZip con el ZipKey devuelto por un envío asíncrono.
func (a *Adapter) CheckStatus(ctx context.Context, trackID string, cfg *entity.ElectronicBillingConfig) (*entity.ElectronicBillingResponse, error) {
	result, err := a.submitter.GetStatusZip(ctx, trackID, cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	resp := fillFromResult(&entity.ElectronicBillingResponse{}, result)
	resp.TrackID = trackID
	if resp.Status == entity.StatusAccepted && result.TrackID != "" && result.TrackID != trackID {
		// XmlDocumentKey es el CUFE del documento validado.
		resp.CUFE = result.TrackID
		resp.VerificationURL = dian.VerificationURL(result.TrackID, cfg.IsProduction())
	}
	return resp, nil
}

func checkConfig(cfg *entity.ElectronicBillingConfig) error {
	if cfg.IsProduction() && len(cfg.Certificate) == 0 {
		return fmt.Errorf("%w: certificate es obligatorio para transmitir en producción", domain.ErrConfiguration)
	}
	if !cfg.IsProduction() && len(cfg.Certificate) > 0 && strings.TrimSpace(cfg.TestSetID) == "" {
		return fmt.Errorf("%w: test_set_id es obligatorio en el ambiente de habilitación", domain.ErrConfiguration)
	}
	return nil
}

func (a *Adapter) sign(xmlDoc []byte, cfg *entity.ElectronicBillingConfig, placeholder bool) ([]byte, error) {
	if placeholder {
		return a.placeholder.Sign(xmlDoc, nil, "")
	}
	return a.signer.Sign(xmlDoc, cfg.Certificate, cfg.CertificatePassword)
}

// issueInstant fecha y hora de emisión como instante; fija la fecha de la entrada del ZIP.
func (a *Adapter) issueInstant(inv *entity.InvoiceData) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05-07:00", domaindian.IssueDate(inv)+"T"+domaindian.IssueTime(inv))
	if err != nil {
		return a.now()
	}
	return t
}

func fillFromResult(resp *entity.ElectronicBillingResponse, result *infradian.SubmitResult) *entity.ElectronicBillingResponse {
	resp.TrackID = result.TrackID
	resp.Response = result
	switch {
	case result.Accepted:
		resp.Success = true
		resp.Status = entity.StatusAccepted
		resp.Message = withDescription("Documento validado por la DIAN", result.StatusDescription)
	case result.Pending:
		resp.Success = true
		resp.Status = entity.StatusPending
		resp.Message = withDescription("Documento recibido por la DIAN, pendiente de validación", result.StatusDescription)
	default:
		resp.Success = false
		resp.Status = entity.StatusRejected
		resp.ErrorKind = entity.ErrorKindRejection
		resp.Message = withDescription("Documento rechazado por la DIAN", result.StatusDescription)
		resp.Errors = result.Errors
	}
	return resp
}

func withDescription(msg, description string) string {
	if d := strings.TrimSpace(description); d != "" {
		return msg + ": " + d
	}
	return msg
}
