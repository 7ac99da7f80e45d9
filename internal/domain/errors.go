package domain

import "errors"

// Errores de dominio del motor de transmisión (sin dependencias externas).
// Las capas inferiores los envuelven con %w; el orquestador los clasifica con errors.Is.
var (
	ErrValidation      = errors.New("factura inválida")
	ErrConfiguration   = errors.New("configuración de facturación electrónica incompleta")
	ErrSigning         = errors.New("error de firma digital")
	ErrTransport       = errors.New("error de transporte")
	ErrTimeout         = errors.New("tiempo de espera agotado")
	ErrRejected        = errors.New("documento rechazado")
	ErrUnknownProvider = errors.New("proveedor de facturación electrónica no configurado")
)
