// Package resolve finds CRM contacts that correspond to an ERP customer.
package resolve

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/validate"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

// Search field names.
const (
	FieldERPID = "customFields.id_cliente_dux"
	FieldEmail = "email"
	FieldPhone = "phone"
)

// DefaultPageLimit caps the number of candidates considered.
const DefaultPageLimit = 20

// Criteria are the identifiers a contact may be matched on. Empty values are
// ignored.
type Criteria struct {
	ERPID string
	Phone string
	Email string
}

// Resolver searches the CRM for matching contacts.
type Resolver struct {
	client     ghl.Client
	locationID string
	pageLimit  int
	log        *zap.Logger
}

// New creates a Resolver scoped to locationID.
func New(client ghl.Client, locationID string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		client:     client,
		locationID: locationID,
		pageLimit:  DefaultPageLimit,
		log:        log.Named("resolve"),
	}
}

// Request builds the search body for c. The second return is false when c
// has no usable criterion.
func (r *Resolver) Request(c Criteria) (ghl.SearchRequest, bool) {
	var filters []ghl.Filter
	if c.ERPID != "" {
		filters = append(filters, ghl.Filter{Field: FieldERPID, Operator: ghl.OperatorEq, Value: c.ERPID})
	}
	if c.Email != "" && validate.IsEmail(c.Email) {
		filters = append(filters, ghl.Filter{Field: FieldEmail, Operator: ghl.OperatorEq, Value: c.Email})
	}
	if c.Phone != "" {
		filters = append(filters, ghl.Filter{Field: FieldPhone, Operator: ghl.OperatorEq, Value: c.Phone})
	}
	if len(filters) == 0 {
		return ghl.SearchRequest{}, false
	}

	return ghl.SearchRequest{
		LocationID: r.locationID,
		Page:       1,
		PageLimit:  r.pageLimit,
		Filters:    []ghl.FilterGroup{{Group: ghl.GroupOR, Filters: filters}},
		Sort:       []ghl.Sort{{Field: "dateAdded", Direction: ghl.SortDesc}},
	}, true
}

// Resolve returns the contacts matching any criterion, most recently added
// first. It never fails: search errors are logged and yield no contacts.
func (r *Resolver) Resolve(ctx context.Context, c Criteria) []ghl.Contact {
	req, ok := r.Request(c)
	if !ok {
		r.log.Debug("no search criteria, skipping lookup")
		return nil
	}

	resp, err := r.client.SearchContacts(ctx, req)
	if err != nil {
		r.log.Error("contact search failed",
			zap.String("erp_id", c.ERPID),
			zap.Error(err),
		)
		return nil
	}

	contacts := resp.Contacts
	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].DateAdded.After(contacts[j].DateAdded)
	})

	r.log.Debug("contact search complete",
		zap.String("erp_id", c.ERPID),
		zap.Int("matches", len(contacts)),
	)
	return contacts
}
