package dux

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// InvoiceDateLayout is the representation DUX uses for fecha_comp.
const InvoiceDateLayout = "Jan 2, 2006 3:04:05 PM"

// Text decodes a JSON string, number, or null into a string. DUX is not
// consistent about quoting identifiers.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return eris.Wrap(err, "dux: decode text")
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

// String returns the raw value.
func (t Text) String() string { return string(t) }

// Branch is an organizational sub-unit (sucursal) of the company.
type Branch struct {
	ID   Text   `json:"id"`
	Name string `json:"sucursal"`
}

// LineItem is one product line on an invoice.
type LineItem struct {
	Item string `json:"item"`
}

// Quote is a budget (presupuesto) the invoice was generated from.
type Quote struct {
	Number Text   `json:"nro_presupuesto"`
	Status string `json:"estado"`
}

// Invoice is a DUX sales invoice (factura).
type Invoice struct {
	ID            Text              `json:"id"`
	CustomerID    Text              `json:"id_cliente"`
	PointOfSale   Text              `json:"nro_pto_vta"`
	StaffID       Text              `json:"id_personal"`
	SalespersonID Text              `json:"id_vendedor"`
	DocumentType  string            `json:"tipo_comp"`
	DocumentNum   Text              `json:"nro_comp"`
	Date          string            `json:"fecha_comp"`
	TaxedAmount   decimal.Decimal   `json:"monto_gravado"`
	Total         decimal.Decimal   `json:"total"`
	LineItems     []LineItem        `json:"detalles"`
	Quotes        []Quote           `json:"presupuesto"`
	Collections   []json.RawMessage `json:"detalles_cobro"`
}

// ParsedDate parses Date using InvoiceDateLayout.
func (inv Invoice) ParsedDate() (time.Time, error) {
	ts, err := time.Parse(InvoiceDateLayout, inv.Date)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "dux: parse invoice date %q", inv.Date)
	}
	return ts, nil
}

// InvoiceFilter scopes an invoice listing.
type InvoiceFilter struct {
	From     time.Time
	To       time.Time
	BranchID string
}

type invoiceList struct {
	Results []Invoice `json:"results"`
}
