package firestore

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestValueRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := []struct {
		name string
		in   Value
	}{
		{"string", String("caol ila 12")},
		{"empty string", String("")},
		{"integer", Integer(42)},
		{"negative integer", Integer(-7)},
		{"double", Double(43.5)},
		{"bool true", Boolean(true)},
		{"bool false", Boolean(false)},
		{"timestamp", Timestamp(ts)},
		{"null", Null()},
		{"array", Array(String("peaty"), String("smoky"))},
		{"map", Map(map[string]Value{"region": String("islay"), "abv": Double(43.5)})},
		{"nested", Map(map[string]Value{
			"tags": Array(String("sherry"), Integer(3)),
			"meta": Map(map[string]Value{"ok": Boolean(false)}),
		})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var out Value
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if out.Kind() != tc.in.Kind() {
				t.Fatalf("kind changed: %v -> %v", tc.in.Kind(), out.Kind())
			}
			before, _ := json.Marshal(tc.in.Interface())
			after, _ := json.Marshal(out.Interface())
			if string(before) != string(after) {
				t.Errorf("value changed: %s -> %s", before, after)
			}
		})
	}
}

// Falsy payloads must survive decoding: variant selection is driven by
// tag presence, never by the truthiness of the payload.
func TestUnmarshalFalsyValues(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Value
	}{
		{"false boolean", `{"booleanValue": false}`, Boolean(false)},
		{"empty string", `{"stringValue": ""}`, String("")},
		{"zero integer", `{"integerValue": "0"}`, Integer(0)},
		{"zero double", `{"doubleValue": 0}`, Double(0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if v.Kind() != tc.want.Kind() {
				t.Fatalf("kind = %v, want %v", v.Kind(), tc.want.Kind())
			}
			if !reflect.DeepEqual(v.Interface(), tc.want.Interface()) {
				t.Errorf("value = %#v, want %#v", v.Interface(), tc.want.Interface())
			}
		})
	}
}

func TestUnmarshalUnknownTagFails(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"geoPointValue": {"latitude": 1}}`), &v)
	if err == nil {
		t.Fatal("expected error for unrecognized type tag")
	}
}

func TestIntegerWireFormatIsString(t *testing.T) {
	data, err := json.Marshal(Integer(9007199254740993))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"integerValue":"9007199254740993"}`
	if string(data) != want {
		t.Errorf("wire = %s, want %s", data, want)
	}
}

func TestEncodeOmitsNilAndZeroTime(t *testing.T) {
	if _, ok := Encode(nil); ok {
		t.Error("nil must be omitted, not encoded")
	}
	if _, ok := Encode(time.Time{}); ok {
		t.Error("zero time must be omitted, not encoded")
	}
}

func TestEncodeWholeFloatTakesIntegerVariant(t *testing.T) {
	v, ok := Encode(float64(70))
	if !ok {
		t.Fatal("expected encode to succeed")
	}
	if v.Kind() != KindInteger {
		t.Errorf("kind = %v, want integer", v.Kind())
	}

	v, ok = Encode(43.5)
	if !ok {
		t.Fatal("expected encode to succeed")
	}
	if v.Kind() != KindDouble {
		t.Errorf("kind = %v, want double", v.Kind())
	}
}

func TestEncodeFieldsDropsNil(t *testing.T) {
	out := EncodeFields(map[string]any{
		"name":  "ardbeg",
		"image": nil,
		"abv":   46.0,
	})
	if _, ok := out["image"]; ok {
		t.Error("nil field must not appear in the payload")
	}
	if len(out) != 2 {
		t.Errorf("len = %d, want 2", len(out))
	}
}

func TestAsNumberWidensBothVariants(t *testing.T) {
	if n, ok := Integer(40).AsNumber(); !ok || n != 40 {
		t.Errorf("Integer(40).AsNumber() = %v, %v", n, ok)
	}
	if n, ok := Double(43.5).AsNumber(); !ok || n != 43.5 {
		t.Errorf("Double(43.5).AsNumber() = %v, %v", n, ok)
	}
	if _, ok := String("40").AsNumber(); ok {
		t.Error("string must not widen to a number")
	}
}

func TestDecodeFieldsShallow(t *testing.T) {
	fields := map[string]Value{
		"name": String("lagavulin 16"),
		"metadata": Map(map[string]Value{
			"translatedName": String("ラガヴーリン16年"),
			"flavorTags":     Array(String("peat"), String("iodine")),
			"nested":         Map(map[string]Value{"deep": String("dropped")}),
		}),
	}

	out := DecodeFieldsShallow(fields)
	meta, ok := out["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata = %T, want map", out["metadata"])
	}
	if meta["translatedName"] != "ラガヴーリン16年" {
		t.Errorf("translatedName = %v", meta["translatedName"])
	}
	tags, ok := meta["flavorTags"].([]string)
	if !ok || len(tags) != 2 {
		t.Errorf("flavorTags = %#v", meta["flavorTags"])
	}
	if _, ok := meta["nested"]; ok {
		t.Error("nested maps must be dropped on the shallow path")
	}
}
