package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds carried in the envelope.
const (
	KindCategoryChanged       = "category_changed"
	KindMerchantAliasChanged  = "merchant_alias_changed"
	KindGroupInclusionChanged = "group_inclusion_changed"
)

// Envelope wraps every published event with its kind so consumers can
// dispatch without sniffing payload fields.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// CategoryChanged fires when one merchant key moves to a new category.
type CategoryChanged struct {
	MerchantKey string `json:"merchant_key"`
	NewCategory string `json:"new_category"`
}

// MerchantAliasChanged fires when aliases are written or reset. An empty
// display name means the keys were reset to raw-name defaults.
type MerchantAliasChanged struct {
	Keys        []string `json:"keys"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
}

// GroupInclusionChanged fires when a group's totals toggle flips.
type GroupInclusionChanged struct {
	DisplayName string `json:"display_name"`
	Included    bool   `json:"included"`
}

// Wrap builds the envelope for a payload.
func Wrap(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Timestamp: time.Now(), Payload: raw})
}

// Decode parses an envelope from wire bytes.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event envelope: %w", err)
	}
	return env, nil
}
