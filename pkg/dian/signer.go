// Interfaz para firma digital de documentos XML (XAdES-BES, DIAN).

package dian

// InvoiceElementID Id del <Invoice> al que apunta la Reference del documento en la firma.
const InvoiceElementID = "invoice-id"

// Signer firma un XML de factura y devuelve el XML con la firma inyectada en el ExtensionContent
// reservado (segundo ext:UBLExtension).
type Signer interface {
	// Sign toma el XML de la factura (sin firma) y el contenedor PKCS#12 con su contraseña,
	// y retorna el XML con el nodo ds:Signature dentro de ext:ExtensionContent.
	// El certificado solo vive en memoria durante la llamada.
	Sign(xmlDoc []byte, certificate []byte, password string) ([]byte, error)
}
