package entity

// Estados normalizados de la transmisión.
const (
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
	StatusPending  = "PENDING"
)

// Clasificación del error para que el llamador distinga corregir datos de reintentar.
const (
	ErrorKindValidation    = "validation"
	ErrorKindConfiguration = "configuration"
	ErrorKindSigning       = "signing"
	ErrorKindTransport     = "transport"
	ErrorKindRejection     = "rejection"
)

// ElectronicBillingResponse es la salida uniforme de cada intento de transmisión.
// Se crea una vez por intento y no se modifica; cada reenvío produce una nueva.
type ElectronicBillingResponse struct {
	Success         bool     `json:"success"`
	CUFE            string   `json:"cufe,omitempty"`
	QRCode          string   `json:"qr_code,omitempty"`
	VerificationURL string   `json:"verification_url,omitempty"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	XMLURL          string   `json:"xml_url,omitempty"`
	TrackID         string   `json:"track_id,omitempty"`
	Status          string   `json:"status,omitempty"` // ACCEPTED | REJECTED | PENDING
	Message         string   `json:"message"`
	Errors          []string `json:"errors,omitempty"`
	ErrorKind       string   `json:"error_kind,omitempty"`
	Response        any      `json:"response,omitempty"` // payload del proveedor para diagnóstico
}
