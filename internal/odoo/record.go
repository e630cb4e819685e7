package odoo

import (
	"encoding/json"
	"strconv"
)

// Record is a server record as returned by read/search_read. Field sets are
// server-configuration-dependent and discovered at runtime via fields_get, so
// no static schema is attempted.
type Record map[string]any

// ID returns the record id, or 0 when absent.
func (r Record) ID() int {
	id, _ := asInt(r["id"])
	return id
}

// Str returns the string value of field, or "" when absent or of another
// type. Odoo encodes empty values as JSON false, which also yields "".
func (r Record) Str(field string) string {
	s, _ := r[field].(string)
	return s
}

// Int returns the integer value of field, or 0.
func (r Record) Int(field string) int {
	n, _ := asInt(r[field])
	return n
}

// Float returns the float value of field, or 0.
func (r Record) Float(field string) float64 {
	f, _ := asFloat(r[field])
	return f
}

// Many2One decodes a many2one field value, which the server renders as
// [id, "display name"]. ok is false for absent or empty (false) values.
func (r Record) Many2One(field string) (id int, name string, ok bool) {
	return parseMany2One(r[field])
}

func parseMany2One(value any) (int, string, bool) {
	pair, ok := value.([]any)
	if !ok || len(pair) < 2 {
		return 0, "", false
	}
	id, ok := asInt(pair[0])
	if !ok {
		return 0, "", false
	}
	name, ok := pair[1].(string)
	if !ok {
		return 0, "", false
	}
	return id, name, true
}

// NameMatch is one autocomplete hit from name_search.
type NameMatch struct {
	ID   int
	Name string
}

// parseNameSearch decodes name_search results: [[id, "display_name"], ...].
// Malformed entries are skipped.
func parseNameSearch(result any) []NameMatch {
	list, ok := result.([]any)
	if !ok {
		return nil
	}
	matches := make([]NameMatch, 0, len(list))
	for _, entry := range list {
		if id, name, ok := parseMany2One(entry); ok {
			matches = append(matches, NameMatch{ID: id, Name: name})
		}
	}
	return matches
}

// asInt coerces the numeric shapes JSON decoding can produce.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toRecords converts a decoded search_read/read result into Records.
func toRecords(result any) []Record {
	list, ok := result.([]any)
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records
}
