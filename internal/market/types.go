package market

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// SaleEvent is one completed trade. Immutable once fetched.
type SaleEvent struct {
	ID           string
	TokenID      string
	Seller       string
	Buyer        string
	NetPrice     decimal.Decimal
	CollectionID string
}

// ListingEvent is one active ask. It has no native id; ID is derived with
// ListingID from the seller, token and raw ask price.
type ListingEvent struct {
	ID           string
	TokenID      string
	Seller       string
	AskPrice     decimal.Decimal
	CollectionID string
}

// ListingID builds the composite listing identifier.
//
// A re-list by the same seller at the same price yields the same id and is
// therefore treated as already notified.
func ListingID(seller, tokenID, askPrice string) string {
	return strings.Join([]string{seller, tokenID, askPrice}, ";")
}

// TokenMetadata is the subset of the token API response used for messages.
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       TokenImage  `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

type TokenImage struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Attribute struct {
	TraitType string     `json:"traitType"`
	Value     TraitValue `json:"value"`
}

// TraitValue is an attribute value rendered as text. The API returns strings
// for most traits and numbers for some (e.g. coefficients).
type TraitValue string

func (v *TraitValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = TraitValue(s)
		return nil
	}
	// Numbers, booleans: keep the literal as sent.
	*v = TraitValue(b)
	return nil
}

// Attribute returns the value of the first attribute named traitType.
func (m TokenMetadata) Attribute(traitType string) (string, bool) {
	for _, a := range m.Attributes {
		if a.TraitType == traitType {
			return string(a.Value), true
		}
	}
	return "", false
}

// Kind is the first whitespace-delimited word of the name ("Bunny #12" -> "Bunny").
func (m TokenMetadata) Kind() string {
	f := strings.Fields(m.Name)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}
