package bx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBigEndianReadWrite verifies BE helpers, used throughout storage and
// btree for sortable keys (index keys, range scans, page headers).
func TestBigEndianReadWrite(t *testing.T) {
	// ---- U16BE ----
	{
		b := make([]byte, 2)
		var v uint16 = 0x1234

		PutU16BE(b, v)
		// BE: most-significant byte first
		assert.Equal(t, []byte{0x12, 0x34}, b)
		assert.Equal(t, v, U16BE(b))
	}

	// ---- U32BE ----
	{
		b := make([]byte, 4)
		var v uint32 = 0x01020304

		PutU32BE(b, v)
		// BE: 01 02 03 04
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, b)
		assert.Equal(t, v, U32BE(b))
	}

	// ---- U64BE ----
	{
		b := make([]byte, 8)
		var v uint64 = 0x0102030405060708

		PutU64BE(b, v)
		// BE: 01 02 03 04 05 06 07 08
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, b)
		assert.Equal(t, v, U64BE(b))
	}
}

// TestBigEndianAt verifies the *BEAt variants with offsets.
func TestBigEndianAt(t *testing.T) {
	buf := make([]byte, 16)

	PutU16BEAt(buf, 0, 0x0A0B)
	PutU32BEAt(buf, 2, 0x01020304)
	PutU64BEAt(buf, 6, 0x0102030405060708)

	assert.Equal(t, uint16(0x0A0B), U16BEAt(buf, 0))
	assert.Equal(t, uint32(0x01020304), U32BEAt(buf, 2))
	assert.Equal(t, uint64(0x0102030405060708), U64BEAt(buf, 6))
}
