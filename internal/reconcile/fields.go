package reconcile

import (
	"strings"

	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/pkg/dux"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

// Custom field keys written from an invoice.
const (
	KeyInvoiceID      = "id_factura_dux"
	KeyPointOfSale    = "numero_punto_venta_dux"
	KeyStaffID        = "id_personal_dux"
	KeySalespersonID  = "id_vendedor_dux"
	KeyDocumentType   = "tipo_comprobante_dux"
	KeyDocumentNumber = "numero_comprobante_dux"
	KeyDocumentDate   = "fecha_comprobante_dux"
	KeyTaxedAmount    = "monto_sin_iva_dux"
	KeyTotal          = "monto_total_dux"
	KeyBranchName     = "nombre_sucursal_dux"
	KeyHasCollection  = "tiene_cobro"
	KeyQuoteNumber    = "presupuesto_numero_dux"
	KeyQuoteStatus    = "presupuesto_estado_dux"
	KeyRental         = "contrata_comodato_dux"
)

// DateLayout is how invoice dates are written to the CRM.
const DateLayout = "2006/01/02"

// DefaultRentalMarker flags line items for equipment on loan.
const DefaultRentalMarker = "COMODATO"

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

// HasRental reports whether any line item mentions marker. The second return
// is false when the invoice has no line items, in which case the flag is not
// written at all.
func HasRental(items []dux.LineItem, marker string) (rental, ok bool) {
	if len(items) == 0 {
		return false, false
	}
	for _, it := range items {
		if strings.Contains(it.Item, marker) {
			return true, true
		}
	}
	return false, true
}

// BuildUpdate derives the contact custom fields from an invoice.
func BuildUpdate(inv dux.Invoice, branchName, rentalMarker string) (ghl.UpdateContactRequest, error) {
	date, err := inv.ParsedDate()
	if err != nil {
		return ghl.UpdateContactRequest{}, &resilience.DataError{Err: err}
	}

	var quoteNum, quoteStatus string
	if len(inv.Quotes) > 0 {
		quoteNum = inv.Quotes[0].Number.String()
		quoteStatus = inv.Quotes[0].Status
	}

	fields := []ghl.CustomField{
		{Key: KeyInvoiceID, FieldValue: inv.ID.String()},
		{Key: KeyPointOfSale, FieldValue: inv.PointOfSale.String()},
		{Key: KeyStaffID, FieldValue: inv.StaffID.String()},
		{Key: KeySalespersonID, FieldValue: inv.SalespersonID.String()},
		{Key: KeyDocumentType, FieldValue: inv.DocumentType},
		{Key: KeyDocumentNumber, FieldValue: inv.DocumentNum.String()},
		{Key: KeyDocumentDate, FieldValue: date.Format(DateLayout)},
		{Key: KeyTaxedAmount, FieldValue: inv.TaxedAmount.String()},
		{Key: KeyTotal, FieldValue: inv.Total.String()},
		{Key: KeyBranchName, FieldValue: branchName},
		{Key: KeyHasCollection, FieldValue: yesNo(len(inv.Collections) > 0)},
		{Key: KeyQuoteNumber, FieldValue: quoteNum},
		{Key: KeyQuoteStatus, FieldValue: quoteStatus},
	}
	if rental, ok := HasRental(inv.LineItems, rentalMarker); ok {
		fields = append(fields, ghl.CustomField{Key: KeyRental, FieldValue: yesNo(rental)})
	}

	return ghl.UpdateContactRequest{CustomFields: fields}, nil
}
