package dian

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	SOAPURLTest = "https://vpfe-hab.dian.gov.co/WcfDianCustomerServices.svc"
	SOAPURLProd = "https://vpfe.dian.gov.co/WcfDianCustomerServices.svc"

	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	soapNSTempuri  = "http://tempuri.org/"
	soapActionBase = "http://tempuri.org/IWcfDianCustomerServices/"

	maxResponseBytes = 4 << 20
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// SubmitRequest documento empaquetado listo para el WS DIAN.
type SubmitRequest struct {
	FileName    string // nombre del ZIP (ej: "900123456SETP990000001.zip")
	ContentFile string // ZIP en Base64
	Production  bool   // true = SendBillSync en producción; false = SendTestSetAsync en habilitación
	TestSetID   string // set de pruebas asignado por la DIAN (solo habilitación)
}

// SubmitResult resultado de la entrega al WS DIAN.
type SubmitResult struct {
	TrackID           string   // ZipKey (asíncrono) o XmlDocumentKey (síncrono)
	Accepted          bool     // la DIAN validó el documento (IsValid)
	Pending           bool     // recibido sin veredicto aún; consultar con GetStatusZip
	StatusCode        string   // código DIAN (00 = procesado correctamente)
	StatusDescription string   // descripción DIAN del estado
	Errors            []string // mensajes de rechazo textuales de la DIAN
}

// DIANSubmitter define el puerto de salida para la entrega de documentos al WS DIAN.
// La implementación concreta usa SOAP; para tests se puede inyectar un mock.
type DIANSubmitter interface {
	SubmitZip(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	GetStatusZip(ctx context.Context, trackID string, production bool) (*SubmitResult, error)
}

// ── Implementación SOAP ────────────────────────────────────────────────────────

// SOAPDIANClient implementa DIANSubmitter usando el WS SOAP 1.1 de la DIAN.
type SOAPDIANClient struct {
	httpClient *http.Client
	urlTest    string
	urlProd    string
}

// SOAPOption configura el cliente SOAP.
type SOAPOption func(*SOAPDIANClient)

// WithHTTPClient reemplaza el *http.Client (timeouts, transporte, mTLS).
func WithHTTPClient(c *http.Client) SOAPOption {
	return func(s *SOAPDIANClient) { s.httpClient = c }
}

// WithEndpoints reemplaza las URLs del WS (pruebas locales o proxies).
func WithEndpoints(test, prod string) SOAPOption {
	return func(s *SOAPDIANClient) {
		s.urlTest = test
		s.urlProd = prod
	}
}

// NewSOAPDIANClient construye el cliente SOAP con un timeout de red generoso (60 s)
// ya que el WS DIAN puede tardar varios segundos en responder. El plazo efectivo lo fija el ctx.
func NewSOAPDIANClient(opts ...SOAPOption) *SOAPDIANClient {
	c := &SOAPDIANClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		urlTest:    SOAPURLTest,
		urlProd:    SOAPURLProd,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soap:Envelope"`
	XmlnsS  string     `xml:"xmlns:soap,attr"`
	XmlnsW  string     `xml:"xmlns:wcf,attr"`
	Header  soapHeader `xml:"soap:Header"`
	Body    soapBody   `xml:"soap:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soap:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// sendBillSyncBody cuerpo para la operación SendBillSync (producción).
type sendBillSyncBody struct {
	XMLName     xml.Name `xml:"wcf:SendBillSync"`
	FileName    string   `xml:"wcf:fileName"`
	ContentFile string   `xml:"wcf:contentFile"` // ZIP en Base64
}

// sendTestSetAsyncBody cuerpo para la operación SendTestSetAsync (habilitación).
type sendTestSetAsyncBody struct {
	XMLName     xml.Name `xml:"wcf:SendTestSetAsync"`
	FileName    string   `xml:"wcf:fileName"`
	ContentFile string   `xml:"wcf:contentFile"` // ZIP en Base64
	TestSetID   string   `xml:"wcf:testSetId"`
}

// getStatusZipBody cuerpo para GetStatusZip (consulta por ZipKey).
type getStatusZipBody struct {
	XMLName xml.Name `xml:"wcf:GetStatusZip"`
	TrackID string   `xml:"wcf:trackId"`
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	SendBillSync     *sendBillSyncResponse     `xml:"SendBillSyncResponse"`
	SendTestSetAsync *sendTestSetAsyncResponse `xml:"SendTestSetAsyncResponse"`
	GetStatusZip     *getStatusZipResponse     `xml:"GetStatusZipResponse"`
	Fault            *soapFault                `xml:"Fault"`
}

type sendBillSyncResponse struct {
	Result dianResponse `xml:"SendBillSyncResult"`
}

type sendTestSetAsyncResponse struct {
	Result uploadDocumentResponse `xml:"SendTestSetAsyncResult"`
}

type getStatusZipResponse struct {
	Results []dianResponse `xml:"GetStatusZipResult>DianResponse"`
}

// dianResponse es el DianResponse del WS (SendBillSync y GetStatusZip).
type dianResponse struct {
	IsValid           bool     `xml:"IsValid"`
	StatusCode        string   `xml:"StatusCode"`
	StatusDescription string   `xml:"StatusDescription"`
	StatusMessage     string   `xml:"StatusMessage"`
	ErrorMessage      []string `xml:"ErrorMessage>string"`
	XmlDocumentKey    string   `xml:"XmlDocumentKey"`
}

// uploadDocumentResponse respuesta asíncrona: ZipKey + errores de recepción por archivo.
type uploadDocumentResponse struct {
	ZipKey           string                     `xml:"ZipKey"`
	ErrorMessageList []xmlParamsResponseTrackID `xml:"ErrorMessageList>XmlParamsResponseTrackId"`
}

type xmlParamsResponseTrackID struct {
	Success          bool   `xml:"Success"`
	ProcessedMessage string `xml:"ProcessedMessage"`
	XmlFileName      string `xml:"XmlFileName"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// SubmitZip envía el ZIP al WS DIAN usando la operación SOAP correspondiente al entorno.
// Errores de red, HTTP no exitoso y SOAP Fault se devuelven como domain.ErrTransport;
// un rechazo de la DIAN es un resultado válido con Accepted=false.
func (c *SOAPDIANClient) SubmitZip(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.ContentFile == "" || req.FileName == "" {
		return nil, fmt.Errorf("%w: fileName y contentFile son obligatorios", domain.ErrConfiguration)
	}
	if req.Production {
		body := &sendBillSyncBody{FileName: req.FileName, ContentFile: req.ContentFile}
		resp, err := c.call(ctx, c.urlProd, "SendBillSync", body)
		if err != nil {
			return nil, err
		}
		if resp.SendBillSync == nil {
			return nil, fmt.Errorf("%w: respuesta SOAP sin SendBillSyncResult", domain.ErrTransport)
		}
		return fromDianResponse(resp.SendBillSync.Result), nil
	}

	body := &sendTestSetAsyncBody{FileName: req.FileName, ContentFile: req.ContentFile, TestSetID: req.TestSetID}
	resp, err := c.call(ctx, c.urlTest, "SendTestSetAsync", body)
	if err != nil {
		return nil, err
	}
	if resp.SendTestSetAsync == nil {
		return nil, fmt.Errorf("%w: respuesta SOAP sin SendTestSetAsyncResult", domain.ErrTransport)
	}
	result := resp.SendTestSetAsync.Result
	var errs []string
	for _, item := range result.ErrorMessageList {
		if !item.Success && item.ProcessedMessage != "" {
			errs = append(errs, item.ProcessedMessage)
		}
	}
	if len(errs) > 0 || result.ZipKey == "" {
		if len(errs) == 0 {
			errs = []string{"la DIAN no devolvió ZipKey"}
		}
		return &SubmitResult{TrackID: result.ZipKey, Errors: errs}, nil
	}
	return &SubmitResult{TrackID: result.ZipKey, Pending: true}, nil
}

// GetStatusZip consulta el estado de un envío asíncrono por su ZipKey.
func (c *SOAPDIANClient) GetStatusZip(ctx context.Context, trackID string, production bool) (*SubmitResult, error) {
	if strings.TrimSpace(trackID) == "" {
		return nil, fmt.Errorf("%w: trackId es obligatorio", domain.ErrConfiguration)
	}
	url := c.urlTest
	if production {
		url = c.urlProd
	}
	resp, err := c.call(ctx, url, "GetStatusZip", &getStatusZipBody{TrackID: trackID})
	if err != nil {
		return nil, err
	}
	if resp.GetStatusZip == nil || len(resp.GetStatusZip.Results) == 0 {
		return nil, fmt.Errorf("%w: respuesta SOAP sin GetStatusZipResult", domain.ErrTransport)
	}
	result := fromDianResponse(resp.GetStatusZip.Results[0])
	if result.TrackID == "" {
		result.TrackID = trackID
	}
	return result, nil
}

// fromDianResponse: IsValid → aceptado; StatusCode 98 = en proceso; cualquier otro → rechazo.
func fromDianResponse(r dianResponse) *SubmitResult {
	res := &SubmitResult{
		TrackID:           r.XmlDocumentKey,
		Accepted:          r.IsValid,
		StatusCode:        r.StatusCode,
		StatusDescription: r.StatusDescription,
	}
	if r.IsValid {
		return res
	}
	if r.StatusCode == "98" {
		res.Pending = true
		return res
	}
	for _, e := range r.ErrorMessage {
		if e = strings.TrimSpace(e); e != "" {
			res.Errors = append(res.Errors, e)
		}
	}
	if len(res.Errors) == 0 {
		msg := strings.TrimSpace(r.StatusMessage)
		if msg == "" {
			msg = strings.TrimSpace(r.StatusDescription)
		}
		if msg == "" {
			msg = "documento rechazado por la DIAN"
		}
		res.Errors = []string{msg}
	}
	return res
}

// call serializa el envelope, hace el POST y desempaqueta el Body.
func (c *SOAPDIANClient) call(ctx context.Context, url, action string, body interface{}) (*soapResponseBody, error) {
	envelope := soapEnvelope{
		XmlnsS: soapNS,
		XmlnsW: soapNSTempuri,
		Body:   soapBody{Content: body},
	}
	xmlPayload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: serializar envelope: %v", domain.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(xmlPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapActionBase+action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: soap %s: %v", domain.ErrTimeout, action, err)
		}
		return nil, fmt.Errorf("%w: soap %s: %v", domain.ErrTransport, action, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrTransport, err)
	}

	var envResp soapResponseEnvelope
	parseErr := xml.Unmarshal(rawBody, &envResp)
	if parseErr == nil && envResp.Body.Fault != nil {
		return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s", domain.ErrTransport,
			envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: soap %s: HTTP %d: %s", domain.ErrTransport, action, resp.StatusCode, truncate(string(rawBody), 300))
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: no se pudo parsear respuesta SOAP: %v", domain.ErrTransport, parseErr)
	}
	return &envResp.Body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
