package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DialRequest is the validated payload that seeds one outbound call.
type DialRequest struct {
	PhoneNumber  string `json:"phone_number"`
	TrunkID      string `json:"trunk_id"`
	CustomerName string `json:"customer_name"`
	AmountDue    string `json:"amount_due"`
	DueDate      string `json:"due_date"`
	Summary      string `json:"summary"`
}

// Defaults applied for absent optional fields.
const (
	DefaultCustomerName = "Alex"
	DefaultAmountDue    = "1000.00"
	DefaultDueDate      = "Unknown"
	DefaultSummary      = "No past conversation"
)

var (
	ErrEmptyMetadata      = errors.New("metadata: empty or trivially empty payload")
	ErrMissingPhoneNumber = errors.New("metadata: missing phone_number")
	ErrMissingTrunk       = errors.New("metadata: no trunk id in payload or process default")
)

// MalformedError reports a payload that failed strict decoding and could not
// be repaired. Both decode errors are kept for diagnostics.
type MalformedError struct {
	Raw       string
	DecodeErr error
	RepairErr error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("metadata: malformed payload (decode: %v; after repair: %v)", e.DecodeErr, e.RepairErr)
}

func (e *MalformedError) Unwrap() error { return e.DecodeErr }

var (
	// Unquoted bare-word keys followed by a colon: phone_number: -> "phone_number":
	bareKeyPattern = regexp.MustCompile(`(\w+)\s*:`)
	// Unquoted scalar values up to the next comma, brace or line break. Quoted
	// values and nested structures are excluded by the character class.
	bareValuePattern = regexp.MustCompile(`:\s*([^",{}\[\]\r\n]+?)\s*([,}\r\n])`)
	// Whitespace accidentally captured inside newly added quotes.
	paddedQuotePattern = regexp.MustCompile(`"\s+([^"]+?)\s+"`)
)

// Parse decodes dispatch metadata into a validated DialRequest. Strict JSON
// decoding is tried first; on failure a best-effort repair pass quotes bare
// keys and scalar values before re-decoding. defaultTrunkID resolves the trunk
// when the payload carries none.
func Parse(raw, defaultTrunkID string) (DialRequest, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "", "{", "}", "{}":
		return DialRequest{}, ErrEmptyMetadata
	}

	var req DialRequest
	decodeErr := json.Unmarshal([]byte(trimmed), &req)
	if decodeErr != nil {
		repaired := Repair(trimmed)
		if repairErr := json.Unmarshal([]byte(repaired), &req); repairErr != nil {
			return DialRequest{}, &MalformedError{Raw: raw, DecodeErr: decodeErr, RepairErr: repairErr}
		}
	}

	if strings.TrimSpace(req.PhoneNumber) == "" {
		return DialRequest{}, ErrMissingPhoneNumber
	}
	if strings.TrimSpace(req.TrunkID) == "" {
		req.TrunkID = strings.TrimSpace(defaultTrunkID)
	}
	if req.TrunkID == "" {
		return DialRequest{}, ErrMissingTrunk
	}

	if req.CustomerName == "" {
		req.CustomerName = DefaultCustomerName
	}
	if req.AmountDue == "" {
		req.AmountDue = DefaultAmountDue
	}
	if req.DueDate == "" {
		req.DueDate = DefaultDueDate
	}
	if req.Summary == "" {
		req.Summary = DefaultSummary
	}

	return req, nil
}

// Repair applies the line-preserving quoting heuristics for common dispatch
// tooling mistakes: unquoted keys, unquoted scalar values, and a missing outer
// object wrapper. It is a fallback, not a guarantee; callers must validate the
// decoded result.
func Repair(raw string) string {
	fixed := strings.TrimSpace(raw)
	if !strings.HasPrefix(fixed, "{") {
		fixed = "{" + fixed + "}"
	}

	fixed = bareKeyPattern.ReplaceAllString(fixed, `"${1}":`)
	fixed = bareValuePattern.ReplaceAllString(fixed, `: "${1}"${2}`)
	fixed = paddedQuotePattern.ReplaceAllString(fixed, `"${1}"`)

	return fixed
}
