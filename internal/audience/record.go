package audience

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Primary codes the classifier returns when it cannot place a description.
const (
	CodeUnknown Code = "UNKNOWN"
	CodeOther   Code = "OTHER"
)

var ErrMalformedRecord = errors.New("malformed classification record")

// Record is the classification of a single company description.
type Record struct {
	Primary     Code   `json:"primary" mapstructure:"primary"`
	Secondary   []Code `json:"secondary" mapstructure:"secondary"`
	Explanation string `json:"explanation" mapstructure:"explanation"`
	// Error is set when classification failed and the record carries no codes.
	Error string `json:"error,omitempty" mapstructure:"error"`
}

// CodeSet returns the union of the primary and secondary codes.
func (r Record) CodeSet() CodeSet {
	codes := make([]Code, 0, len(r.Secondary)+1)
	codes = append(codes, r.Primary)
	codes = append(codes, r.Secondary...)
	return NewCodeSet(codes...)
}

// IsUnresolved reports whether the classifier gave up on the description.
func (r Record) IsUnresolved() bool {
	return r.Primary == CodeUnknown || r.Primary == CodeOther
}

// Failed builds a record that only carries an error message.
func Failed(err error) Record {
	return Record{Error: err.Error()}
}

// JSON renders the record for a tabular cell. A failed record renders as
// {"error": "..."} only.
func (r Record) JSON() string {
	if r.Error != "" {
		data, err := json.Marshal(map[string]string{"error": r.Error})
		if err != nil {
			return "{}"
		}
		return string(data)
	}
	if r.Secondary == nil {
		r.Secondary = []Code{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ParseRecord decodes a JSON classification object. Types are coerced loosely:
// a scalar secondary becomes a one-element list and numbers become codes.
// Codes are kept verbatim and compared by exact text.
func ParseRecord(raw string) (Record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Record{}, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if data == nil {
		return Record{}, fmt.Errorf("%w: not an object", ErrMalformedRecord)
	}

	var record Record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &record,
	})
	if err != nil {
		return Record{}, err
	}

	if err := decoder.Decode(data); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	record.Explanation = strings.TrimSpace(record.Explanation)

	return record, nil
}
