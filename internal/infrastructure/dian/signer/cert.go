// Carga de certificado desde contenedor PKCS#12 (.p12/.pfx).

package signer

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/jhoicas/facturacion-electronica/internal/domain"

	"golang.org/x/crypto/pkcs12"
)

// Credentials certificado de firma, su llave RSA y la cadena de certificación incluida en el .p12.
type Credentials struct {
	PrivateKey *rsa.PrivateKey
	Leaf       *x509.Certificate
	Chain      []*x509.Certificate // Leaf primero, luego intermedios/raíz en el orden del contenedor
}

// LoadFromP12Bytes decodifica un contenedor PKCS#12 en memoria.
// Soporta contenedores con cadena (pkcs12.Decode solo acepta un certificado).
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12Bytes(data []byte, password string) (*Credentials, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: certificado vacío", domain.ErrSigning)
	}
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: decodificar p12: %v", domain.ErrSigning, err)
	}

	var (
		key   *rsa.PrivateKey
		certs []*x509.Certificate
	)
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY":
			k, err := parseRSAKey(b)
			if err != nil {
				return nil, err
			}
			key = k
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrSigning, err)
			}
			certs = append(certs, c)
		}
	}
	if key == nil {
		return nil, fmt.Errorf("%w: el p12 no contiene llave privada", domain.ErrSigning)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: el p12 no contiene certificados", domain.ErrSigning)
	}

	// Hoja = certificado cuya llave pública corresponde a la llave privada.
	leafIdx := -1
	for i, c := range certs {
		if pub, ok := c.PublicKey.(*rsa.PublicKey); ok && pub.Equal(&key.PublicKey) {
			leafIdx = i
			break
		}
	}
	if leafIdx == -1 {
		return nil, fmt.Errorf("%w: ningún certificado corresponde a la llave privada", domain.ErrSigning)
	}
	chain := []*x509.Certificate{certs[leafIdx]}
	for i, c := range certs {
		if i != leafIdx {
			chain = append(chain, c)
		}
	}
	return &Credentials{PrivateKey: key, Leaf: certs[leafIdx], Chain: chain}, nil
}

// parseRSAKey acepta PKCS#1 (lo que emite pkcs12.ToPEM para RSA) y PKCS#8.
func parseRSAKey(b *pem.Block) (*rsa.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(b.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: llave privada ilegible: %v", domain.ErrSigning, err)
	}
	k, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: tipo de llave no soportado %T, se requiere RSA", domain.ErrSigning, parsed)
	}
	return k, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64), el emisor
// y el serial en decimal para xades:SigningCertificate.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}

// Summary datos no sensibles del certificado para diagnóstico (nunca la llave).
func (c *Credentials) Summary() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Sujeto:   %s\n", c.Leaf.Subject.String())
	fmt.Fprintf(&b, "Emisor:   %s\n", c.Leaf.Issuer.String())
	fmt.Fprintf(&b, "Serial:   %s\n", c.Leaf.SerialNumber.String())
	fmt.Fprintf(&b, "Vigencia: %s a %s\n", c.Leaf.NotBefore.Format("2006-01-02"), c.Leaf.NotAfter.Format("2006-01-02"))
	fmt.Fprintf(&b, "Cadena:   %d certificado(s)\n", len(c.Chain))
	return b.String()
}
