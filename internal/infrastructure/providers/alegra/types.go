package alegra

import (
	"encoding/json"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"
)

// Valores del catálogo de Alegra para contactos colombianos.
const (
	identificationNIT = "NIT"
	identificationCC  = "CC"

	kindLegalEntity  = "LEGAL_ENTITY"
	kindPersonEntity = "PERSON_ENTITY"

	regimeCommon     = "COMMON_REGIME"
	regimeSimplified = "SIMPLIFIED_REGIME"

	paymentCash   = "CASH"
	paymentCredit = "CREDIT"

	stampSigned = "signed"
)

// id Alegra envía los ids unas veces como número y otras como texto.
type id string

func (i *id) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*i = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*i = id(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*i = id(n.String())
	return nil
}

// ── Contactos ─────────────────────────────────────────────────────────────────

type contact struct {
	ID   id     `json:"id"`
	Name string `json:"name"`
}

type identificationObject struct {
	Type   string `json:"type"`
	Number string `json:"number"`
	DV     string `json:"dv,omitempty"`
}

type contactAddress struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

type createContactRequest struct {
	Name                 string               `json:"name"`
	IdentificationObject identificationObject `json:"identificationObject"`
	KindOfPerson         string               `json:"kindOfPerson"`
	Regime               string               `json:"regime"`
	Address              *contactAddress      `json:"address,omitempty"`
	Email                string               `json:"email,omitempty"`
	PhonePrimary         string               `json:"phonePrimary,omitempty"`
	Type                 []string             `json:"type"`
}

// ── Facturas ──────────────────────────────────────────────────────────────────

type clientRef struct {
	ID string `json:"id"`
}

type itemTax struct {
	ID string `json:"id"`
}

type invoiceItem struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	Discount    float64   `json:"discount,omitempty"` // porcentaje
	Tax         []itemTax `json:"tax,omitempty"`
}

type stampRequest struct {
	GenerateStamp bool `json:"generateStamp"`
}

type createInvoiceRequest struct {
	Date          string        `json:"date"`
	DueDate       string        `json:"dueDate"`
	Client        clientRef     `json:"client"`
	Items         []invoiceItem `json:"items"`
	PaymentForm   string        `json:"paymentForm"`
	PaymentMethod string        `json:"paymentMethod"`
	Observations  string        `json:"observations,omitempty"`
	Stamp         stampRequest  `json:"stamp"`
}

type stampPayload struct {
	Status      string             `json:"status"`
	LegalStatus string             `json:"legalStatus"`
	CUFE        string             `json:"cufe"`
	XML         string             `json:"xml"`
	PDF         string             `json:"pdf"`
	Warnings    providers.Messages `json:"warnings"`
	Errors      providers.Messages `json:"errors"`
}

type invoiceResponse struct {
	ID             id     `json:"id"`
	Status         string `json:"status"`
	NumberTemplate struct {
		FullNumber string `json:"fullNumber"`
	} `json:"numberTemplate"`
	Stamp *stampPayload `json:"stamp"`
}

func (i id) String() string { return string(i) }

// valid indica un id utilizable: ni vacío ni cero.
func (i id) valid() bool {
	s := strings.TrimSpace(string(i))
	return s != "" && s != "0"
}
