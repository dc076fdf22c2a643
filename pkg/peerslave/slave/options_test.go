package slave

import (
	"reflect"
	"testing"
)

func TestOptions_EncodeDecodeRoundTrip(t *testing.T) {
	var container []byte
	container = AppendOption(container, Option{Key: "masterid", Value: Uint64Value(7)})
	container = AppendOption(container, Option{Key: "timallow", Value: Uint64Value(30)})

	out, err := DecodeOptions(container)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 options, got %d", len(out))
	}
	if out[0].Key != "masterid" || Uint64(out[0].Value) != 7 {
		t.Errorf("unexpected first option: %+v", out[0])
	}
	if out[1].Key != "timallow" || Uint64(out[1].Value) != 30 {
		t.Errorf("unexpected second option: %+v", out[1])
	}
}

func TestFailureOptions_CarriesMessage(t *testing.T) {
	out, err := DecodeOptions(FailureOptions("boom"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(out, []Option{{Key: "lasterr", Value: []byte("boom")}}) {
		t.Errorf("unexpected failure options: %+v", out)
	}
}
