package btree

import "github.com/tuannm99/novadb/internal/types"

// compareKeyBytes decodes two fixed-width key encodings against schema
// and compares them column by column (Value.Compare), matching how the
// spec defines ordering for tuple-keyed indexes rather than a raw byte
// comparison (which would misorder signed integers and floats).
func compareKeyBytes(schema *types.Schema, a, b []byte) (int, error) {
	ta, err := types.Decode(schema, a)
	if err != nil {
		return 0, err
	}
	tb, err := types.Decode(schema, b)
	if err != nil {
		return 0, err
	}
	for i := range ta.Values {
		c, err := ta.Values[i].Compare(tb.Values[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

// encodeKey encodes a key tuple (restricted to the index's key columns)
// to its fixed-width on-disk form.
func encodeKey(schema *types.Schema, key types.Tuple) ([]byte, error) {
	buf, err := key.Encode()
	if err != nil {
		return nil, err
	}
	want := keySize(schema)
	if len(buf) != want {
		out := make([]byte, want)
		copy(out, buf)
		return out, nil
	}
	return buf, nil
}
