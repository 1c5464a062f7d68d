package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/recur/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TransferID", id.NewTransferID, "xfer_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := id.NewTransferID()
	parsed, err := id.ParseTransferID(original.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	evt := id.NewEventID()
	if _, err := id.ParseTransferID(evt.String()); err == nil {
		t.Fatal("expected error for mismatched prefix")
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "not-a-typeid"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Fatal("zero value should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("expected nil value, got %v, %v", v, err)
	}
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		ID id.ID `json:"id"`
	}
	in := wrapper{ID: id.NewEventID()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID.String() != in.ID.String() {
		t.Errorf("got %q, want %q", out.ID.String(), in.ID.String())
	}
}

func TestScan(t *testing.T) {
	want := id.NewTransferID()

	var fromString id.ID
	if err := fromString.Scan(want.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString.String() != want.String() {
		t.Errorf("got %q, want %q", fromString.String(), want.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("scan nil: %v, nil=%v", err, fromNil.IsNil())
	}

	for _, src := range []any{"", []byte{}, []byte(nil)} {
		scanned := id.NewTransferID()
		if err := scanned.Scan(src); err != nil || !scanned.IsNil() {
			t.Errorf("scan %#v: %v, nil=%v", src, err, scanned.IsNil())
		}
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(want.String())); err != nil || fromBytes.String() != want.String() {
		t.Errorf("scan bytes: %v, got %q", err, fromBytes.String())
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
