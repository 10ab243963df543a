package schema

import (
	"encoding/json"
	"testing"

	"github.com/observatorium/cfganalyzer/pkg/testutil"
)

func TestDecodeMappingTarget_Order(t *testing.T) {
	var raw []json.RawMessage
	testutil.Ok(t, json.Unmarshal([]byte(`[
		{"key": "CONVERTED", "function": "base64"},
		{"key": "COPIED"},
		"PLAIN",
		{"key": "COPIED_TOO", "function": 3}
	]`), &raw))

	var got []MappingTarget
	for i, r := range raw {
		m, err := decodeMappingTarget(indexPath("m", i), r)
		testutil.Ok(t, err)
		got = append(got, m)
	}
	testutil.Equals(t, []MappingTarget{
		ConvertMapping{Key: "CONVERTED", Function: "base64"},
		CopyMapping{Key: "COPIED"},
		KeyOnly("PLAIN"),
		// A non-string function does not satisfy ConvertMapping.
		CopyMapping{Key: "COPIED_TOO"},
	}, got)
}

func TestDecodeMappingTarget_DecoderOrder(t *testing.T) {
	// A ConvertMapping payload must not be taken by a looser decoder first.
	payload := json.RawMessage(`{"key": "K", "function": "f"}`)
	for i, dec := range mappingTargetDecoders {
		m, ok := dec(payload)
		if !ok {
			continue
		}
		testutil.Equals(t, 0, i, "first accepting decoder")
		testutil.Equals(t, ConvertMapping{Key: "K", Function: "f"}, m)
		break
	}
}

func TestDecodeMappingTarget_Invalid(t *testing.T) {
	for _, raw := range []string{`null`, `42`, `{}`, `{"function": "f"}`, `["A"]`, `true`} {
		_, err := decodeMappingTarget("m", json.RawMessage(raw))
		testutil.NotOk(t, err, "value %s", raw)
	}
}

func TestMappingTarget_TargetKey(t *testing.T) {
	testutil.Equals(t, "A", KeyOnly("A").TargetKey())
	testutil.Equals(t, "B", CopyMapping{Key: "B"}.TargetKey())
	testutil.Equals(t, "C", ConvertMapping{Key: "C", Function: "lower"}.TargetKey())
}
