package model

import (
	"fmt"
)

// RawRow is one grid row as rendered by the ERP, in positional order.
type RawRow []string

// Field names a semantic position in a staged client row.
type Field string

const (
	FieldID               Field = "id"
	FieldCreatedAt        Field = "fecha_creacion"
	FieldName             Field = "cliente"
	FieldTaxCategory      Field = "categoria_fiscal"
	FieldDocumentType     Field = "tipo_documento"
	FieldDocumentNumber   Field = "numero_documento"
	FieldFiscalID         Field = "cuit_cuil"
	FieldCollector        Field = "cobrador"
	FieldCustomerType     Field = "tipo_cliente"
	FieldContactPerson    Field = "persona_contacto"
	FieldNonEditable      Field = "no_editable"
	FieldDeliveryPlace    Field = "lugar_entrega_por_defecto"
	FieldDefaultVoucher   Field = "tipo_comprobante_por_defecto"
	FieldPriceList        Field = "lista_precio_por_defecto"
	FieldEnabled          Field = "habilitado"
	FieldTradeName        Field = "nombre_de_fantasia"
	FieldPostalCode       Field = "codigo"
	FieldEmail            Field = "correo_electronico"
	FieldSalesperson      Field = "vendedor"
	FieldProvince         Field = "provincia"
	FieldLocality         Field = "localidad"
	FieldNeighborhood     Field = "barrio"
	FieldAddress          Field = "domicilio"
	FieldPhone            Field = "telefono"
	FieldMobile           Field = "celular"
	FieldZone             Field = "zona"
	FieldPaymentCondition Field = "condicion_pago"
)

// Schema maps each field to its index in a staged row.
type Schema map[Field]int

// DefaultSchema is the layout of the DUX client list once the two leading
// grid columns (selection and actions) are stripped.
var DefaultSchema = Schema{
	FieldID:               0,
	FieldCreatedAt:        1,
	FieldName:             2,
	FieldTaxCategory:      3,
	FieldDocumentType:     4,
	FieldDocumentNumber:   5,
	FieldFiscalID:         6,
	FieldCollector:        7,
	FieldCustomerType:     8,
	FieldContactPerson:    9,
	FieldNonEditable:      10,
	FieldDeliveryPlace:    11,
	FieldDefaultVoucher:   12,
	FieldPriceList:        13,
	FieldEnabled:          14,
	FieldTradeName:        15,
	FieldPostalCode:       16,
	FieldEmail:            17,
	FieldSalesperson:      18,
	FieldProvince:         19,
	FieldLocality:         20,
	FieldNeighborhood:     21,
	FieldAddress:          22,
	FieldPhone:            23,
	FieldMobile:           24,
	FieldZone:             25,
	FieldPaymentCondition: 26,
}

// Width returns the minimum row length the schema can read from.
func (s Schema) Width() int {
	w := 0
	for _, idx := range s {
		if idx+1 > w {
			w = idx + 1
		}
	}
	return w
}

// Fields returns the schema's fields ordered by position.
func (s Schema) Fields() []Field {
	out := make([]Field, s.Width())
	for f, idx := range s {
		out[idx] = f
	}
	return out
}

// SchemaMismatchError reports a row too short for the schema.
type SchemaMismatchError struct {
	Need int
	Got  int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: row has %d fields, schema needs %d", e.Got, e.Need)
}

// ClientRecord is the named view over one staged client row.
type ClientRecord struct {
	ID               string
	CreatedAt        string
	Name             string
	TaxCategory      string
	DocumentType     string
	DocumentNumber   string
	FiscalID         string
	Collector        string
	CustomerType     string
	ContactPerson    string
	NonEditable      string
	DeliveryPlace    string
	DefaultVoucher   string
	PriceList        string
	Enabled          string
	TradeName        string
	PostalCode       string
	Email            string
	Salesperson      string
	Province         string
	Locality         string
	Neighborhood     string
	Address          string
	Phone            string
	Mobile           string
	Zone             string
	PaymentCondition string
}

// MapRecord reads row through the schema. A row shorter than the schema's
// width yields a *SchemaMismatchError and no record.
func MapRecord(row RawRow, s Schema) (ClientRecord, error) {
	if need := s.Width(); len(row) < need {
		return ClientRecord{}, &SchemaMismatchError{Need: need, Got: len(row)}
	}
	get := func(f Field) string {
		idx, ok := s[f]
		if !ok {
			return ""
		}
		return row[idx]
	}
	return ClientRecord{
		ID:               get(FieldID),
		CreatedAt:        get(FieldCreatedAt),
		Name:             get(FieldName),
		TaxCategory:      get(FieldTaxCategory),
		DocumentType:     get(FieldDocumentType),
		DocumentNumber:   get(FieldDocumentNumber),
		FiscalID:         get(FieldFiscalID),
		Collector:        get(FieldCollector),
		CustomerType:     get(FieldCustomerType),
		ContactPerson:    get(FieldContactPerson),
		NonEditable:      get(FieldNonEditable),
		DeliveryPlace:    get(FieldDeliveryPlace),
		DefaultVoucher:   get(FieldDefaultVoucher),
		PriceList:        get(FieldPriceList),
		Enabled:          get(FieldEnabled),
		TradeName:        get(FieldTradeName),
		PostalCode:       get(FieldPostalCode),
		Email:            get(FieldEmail),
		Salesperson:      get(FieldSalesperson),
		Province:         get(FieldProvince),
		Locality:         get(FieldLocality),
		Neighborhood:     get(FieldNeighborhood),
		Address:          get(FieldAddress),
		Phone:            get(FieldPhone),
		Mobile:           get(FieldMobile),
		Zone:             get(FieldZone),
		PaymentCondition: get(FieldPaymentCondition),
	}, nil
}

// PreferredPhone returns the mobile number when present, else the landline.
func (r ClientRecord) PreferredPhone() string {
	if r.Mobile != "" {
		return r.Mobile
	}
	return r.Phone
}
