package ghl

import (
	"time"
)

// CustomField is a key/value pair written to a contact's custom fields.
type CustomField struct {
	Key        string `json:"key"`
	FieldValue string `json:"field_value"`
}

// UpsertContactRequest is the body of POST /contacts/upsert.
type UpsertContactRequest struct {
	LocationID   string        `json:"locationId"`
	FirstName    string        `json:"firstName"`
	Phone        string        `json:"phone,omitempty"`
	Email        string        `json:"email,omitempty"`
	CustomFields []CustomField `json:"customFields"`
}

// UpsertContactResponse is the CRM's answer to an upsert.
type UpsertContactResponse struct {
	New     bool    `json:"new"`
	Contact Contact `json:"contact"`
}

// UpdateContactRequest is the body of PUT /contacts/{id}.
type UpdateContactRequest struct {
	CustomFields []CustomField `json:"customFields"`
}

// ContactCustomField is a custom field value as returned by search.
type ContactCustomField struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Contact is a CRM contact record.
type Contact struct {
	ID           string               `json:"id"`
	LocationID   string               `json:"locationId,omitempty"`
	FirstName    string               `json:"firstName,omitempty"`
	Email        string               `json:"email,omitempty"`
	Phone        string               `json:"phone,omitempty"`
	DateAdded    time.Time            `json:"dateAdded"`
	CustomFields []ContactCustomField `json:"customFields,omitempty"`
}

// Filter operators and groups accepted by the search endpoint.
const (
	GroupOR    = "OR"
	GroupAND   = "AND"
	OperatorEq = "eq"

	SortDesc = "desc"
	SortAsc  = "asc"
)

// Filter is one search predicate.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// FilterGroup combines filters with AND or OR.
type FilterGroup struct {
	Group   string   `json:"group"`
	Filters []Filter `json:"filters"`
}

// Sort orders search results.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// SearchRequest is the body of POST /contacts/search.
type SearchRequest struct {
	LocationID string        `json:"locationId"`
	Page       int           `json:"page"`
	PageLimit  int           `json:"pageLimit"`
	Filters    []FilterGroup `json:"filters"`
	Sort       []Sort        `json:"sort,omitempty"`
}

// SearchResponse holds the matched contacts.
type SearchResponse struct {
	Contacts []Contact `json:"contacts"`
	Total    int       `json:"total"`
}
