package parser

import "strings"

// BankRegistry maps SMS sender codes to bank names. Sender hints arrive with
// carrier route prefixes ("VM-HDFCBK-S"), so matching is by substring of the
// uppercased hint.
type BankRegistry struct {
	codes map[string]string
}

// NewBankRegistry returns the registry of known Indian bank sender codes.
func NewBankRegistry() *BankRegistry {
	return &BankRegistry{codes: map[string]string{
		"HDFCBK": "HDFC Bank",
		"HDFCBN": "HDFC Bank",
		"ICICIB": "ICICI Bank",
		"ICICIT": "ICICI Bank",
		"SBIINB": "State Bank of India",
		"SBIPSG": "State Bank of India",
		"SBIUPI": "State Bank of India",
		"CBSSBI": "State Bank of India",
		"SBICRD": "SBI Card",
		"AXISBK": "Axis Bank",
		"KOTAKB": "Kotak Mahindra Bank",
		"PNBSMS": "Punjab National Bank",
		"CANBNK": "Canara Bank",
		"BOIIND": "Bank of India",
		"IDFCFB": "IDFC First Bank",
		"INDUSB": "IndusInd Bank",
		"YESBNK": "Yes Bank",
		"AUBANK": "AU Small Finance Bank",
		"PAYTMB": "Paytm Payments Bank",
		"AIRBNK": "Airtel Payments Bank",
	}}
}

// Lookup resolves a sender hint to a bank name. ok is false when the hint
// matches no known code.
func (r *BankRegistry) Lookup(senderHint string) (name string, ok bool) {
	hint := strings.ToUpper(strings.TrimSpace(senderHint))
	if hint == "" {
		return "", false
	}
	for code, bank := range r.codes {
		if strings.Contains(hint, code) {
			return bank, true
		}
	}
	return "", false
}

// fallbackBankName derives a bank name for unrecognized senders. The carrier
// route prefix and suffix ("VM-", "-S") are stripped so that unknown senders
// still group consistently.
func fallbackBankName(senderHint string) string {
	hint := strings.ToUpper(strings.TrimSpace(senderHint))
	if hint == "" {
		return "UNKNOWN"
	}
	parts := strings.Split(hint, "-")
	// The longest segment is the sender code; prefixes and suffixes are
	// one or two characters.
	best := parts[0]
	for _, p := range parts[1:] {
		if len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return "UNKNOWN"
	}
	return best
}
