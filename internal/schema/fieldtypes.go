package schema

// Airtable field types as returned by the metadata API.
const (
	FieldTypeSingleLineText        = "singleLineText"
	FieldTypeEmail                 = "email"
	FieldTypeURL                   = "url"
	FieldTypeMultilineText         = "multilineText"
	FieldTypeNumber                = "number"
	FieldTypePercent               = "percent"
	FieldTypeCurrency              = "currency"
	FieldTypeSingleSelect          = "singleSelect"
	FieldTypeMultipleSelects       = "multipleSelects"
	FieldTypeSingleCollaborator    = "singleCollaborator"
	FieldTypeMultipleCollaborators = "multipleCollaborators"
	FieldTypeMultipleRecordLinks   = "multipleRecordLinks"
	FieldTypeMultipleLookupValues  = "multipleLookupValues"
	FieldTypeDate                  = "date"
	FieldTypePhoneNumber           = "phoneNumber"
	FieldTypeMultipleAttachments   = "multipleAttachments"
	FieldTypeCheckbox              = "checkbox"
	FieldTypeFormula               = "formula"
	FieldTypeCreatedTime           = "createdTime"
	FieldTypeRollup                = "rollup"
	FieldTypeCount                 = "count"
	FieldTypeLookup                = "lookup"
	FieldTypeCreatedBy             = "createdBy"
	FieldTypeLastModifiedTime      = "lastModifiedTime"
	FieldTypeLastModifiedBy        = "lastModifiedBy"
	FieldTypeAutoNumber            = "autoNumber"
	FieldTypeBarcode               = "barcode"
	FieldTypeRating                = "rating"
	FieldTypeRichText              = "richText"
	FieldTypeDuration              = "duration"
)

// IsLinkType reports whether fields of this type reference records in another table.
// Only these fields produce relationships.
func IsLinkType(t string) bool {
	return t == FieldTypeMultipleRecordLinks
}

// IsLinkAdjacent reports whether the type is a link or a lookup through a link.
func IsLinkAdjacent(t string) bool {
	return t == FieldTypeMultipleRecordLinks || t == FieldTypeMultipleLookupValues
}
