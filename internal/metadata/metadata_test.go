package metadata

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseWellFormed(t *testing.T) {
	raw := `{"phone_number":"+15551234567","trunk_id":"ST_abc","customer_name":"Dana"}`
	req, err := Parse(raw, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if req.PhoneNumber != "+15551234567" || req.TrunkID != "ST_abc" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.CustomerName != "Dana" {
		t.Fatalf("CustomerName = %q, want %q", req.CustomerName, "Dana")
	}
	if req.AmountDue != DefaultAmountDue || req.DueDate != DefaultDueDate || req.Summary != DefaultSummary {
		t.Fatalf("defaults not applied: %+v", req)
	}
}

func TestParseAppliesAllDefaults(t *testing.T) {
	req, err := Parse(`{"phone_number":"+15550001111"}`, "ST_default")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if req.TrunkID != "ST_default" {
		t.Fatalf("TrunkID = %q, want process default", req.TrunkID)
	}
	if req.CustomerName != DefaultCustomerName {
		t.Fatalf("CustomerName = %q, want %q", req.CustomerName, DefaultCustomerName)
	}
	if req.AmountDue != DefaultAmountDue {
		t.Fatalf("AmountDue = %q, want %q", req.AmountDue, DefaultAmountDue)
	}
	if req.DueDate != DefaultDueDate {
		t.Fatalf("DueDate = %q, want %q", req.DueDate, DefaultDueDate)
	}
	if req.Summary != DefaultSummary {
		t.Fatalf("Summary = %q, want %q", req.Summary, DefaultSummary)
	}
}

func TestParseEmptyVariants(t *testing.T) {
	for _, raw := range []string{"", "  ", "{", "}", "{}", " {} "} {
		if _, err := Parse(raw, "ST_default"); !errors.Is(err, ErrEmptyMetadata) {
			t.Fatalf("Parse(%q) error = %v, want ErrEmptyMetadata", raw, err)
		}
	}
}

func TestRepairUnquotedKeysAndValues(t *testing.T) {
	raw := `phone_number: "+15551234567", trunk_id: "abc"`
	fixed := Repair(raw)

	var got map[string]string
	if err := json.Unmarshal([]byte(fixed), &got); err != nil {
		t.Fatalf("repaired payload does not decode: %v (repaired: %q)", err, fixed)
	}
	want := map[string]string{"phone_number": "+15551234567", "trunk_id": "abc"}
	if len(got) != len(want) {
		t.Fatalf("decoded = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("decoded[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestParseRepairsUnquotedScalars(t *testing.T) {
	raw := "{phone_number: +15551234567, trunk_id: ST_abc, amount_due: 250.00}"
	req, err := Parse(raw, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if req.PhoneNumber != "+15551234567" {
		t.Fatalf("PhoneNumber = %q", req.PhoneNumber)
	}
	if req.TrunkID != "ST_abc" {
		t.Fatalf("TrunkID = %q", req.TrunkID)
	}
	if req.AmountDue != "250.00" {
		t.Fatalf("AmountDue = %q", req.AmountDue)
	}
}

func TestParseMalformedCarriesBothErrors(t *testing.T) {
	_, err := Parse(`{"phone_number": [}`, "ST_default")
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("Parse() error = %v, want *MalformedError", err)
	}
	if malformed.DecodeErr == nil || malformed.RepairErr == nil {
		t.Fatalf("MalformedError should carry both stage errors: %+v", malformed)
	}
}

func TestParseMissingPhoneNumber(t *testing.T) {
	if _, err := Parse(`{"trunk_id":"ST_abc"}`, ""); !errors.Is(err, ErrMissingPhoneNumber) {
		t.Fatalf("error = %v, want ErrMissingPhoneNumber", err)
	}
}

func TestParseMissingTrunk(t *testing.T) {
	if _, err := Parse(`{"phone_number":"+15550001111"}`, ""); !errors.Is(err, ErrMissingTrunk) {
		t.Fatalf("error = %v, want ErrMissingTrunk", err)
	}
}
