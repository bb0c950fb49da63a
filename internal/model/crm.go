package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts any JSON scalar. CRM exports are inconsistent about
// quoting numbers, so price "250000" and 250000 both decode to the same text.
// null decodes to the empty string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*f = FlexString(strconv.FormatBool(b))
	return nil
}

// String returns the trimmed text value.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// CRMRecord is the listing payload pushed by the CRM webhook or read from a
// CSV export. Every field is optional; missing fields decode to "".
type CRMRecord struct {
	ID           FlexString `json:"id"`
	Title        FlexString `json:"title"`
	Description  FlexString `json:"description"`
	Excerpt      FlexString `json:"excerpt"`
	Price        FlexString `json:"price"`
	Country      FlexString `json:"country"`
	Region       FlexString `json:"region"`
	Municipality FlexString `json:"municipality"`
	Town         FlexString `json:"town"`
	Postcode     FlexString `json:"postcode"`
	PropertyType FlexString `json:"property_type"`
	AreaPlot     FlexString `json:"area_plot"`
	AreaProperty FlexString `json:"area_property"`
	Bedrooms     FlexString `json:"bedrooms"`
	Bathrooms    FlexString `json:"bathrooms"`
	Features     FlexString `json:"features"`
}

// UnmarshalJSON accepts "type" as an alias of "property_type", which is the
// column name used by CRM CSV exports.
func (r *CRMRecord) UnmarshalJSON(data []byte) error {
	type plain CRMRecord
	aux := struct {
		*plain
		Type FlexString `json:"type"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.PropertyType.String() == "" {
		r.PropertyType = aux.Type
	}
	return nil
}

// CRMRecordFromRow builds a record from a CSV row keyed by lower-cased header.
func CRMRecordFromRow(row map[string]string) CRMRecord {
	get := func(keys ...string) FlexString {
		for _, k := range keys {
			if v, ok := row[k]; ok && strings.TrimSpace(v) != "" {
				return FlexString(v)
			}
		}
		return ""
	}
	return CRMRecord{
		ID:           get("id", "crm reference"),
		Title:        get("title"),
		Description:  get("description"),
		Excerpt:      get("excerpt"),
		Price:        get("price"),
		Country:      get("country"),
		Region:       get("region"),
		Municipality: get("municipality"),
		Town:         get("town"),
		Postcode:     get("postcode"),
		PropertyType: get("property_type", "type"),
		AreaPlot:     get("area_plot"),
		AreaProperty: get("area_property"),
		Bedrooms:     get("bedrooms"),
		Bathrooms:    get("bathrooms"),
		Features:     get("features"),
	}
}
