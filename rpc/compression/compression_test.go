package compression

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressible(n int) []byte {
	return bytes.Repeat([]byte("0123456789abcdef"), n/16+1)[:n]
}

func random(t testing.TB, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestCompressorRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"small":        []byte("hello hello hello hello"),
		"compressible": compressible(1 << 20),
		"random":       random(t, 64*1024),
	}

	for _, name := range Names() {
		c, err := ByName(name)
		require.NoError(t, err)

		for inputName, input := range inputs {
			t.Run(name+"_"+inputName, func(t *testing.T) {
				compressed, err := c.Compress(input)
				if err == ErrIncompressible {
					return
				}
				require.NoError(t, err)

				restored, err := c.Decompress(compressed, 0)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(input, restored), "content mismatch after round trip")
			})
		}
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		c, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())

		byID, err := ByID(c.ID())
		require.NoError(t, err)
		assert.Equal(t, name, byID.Name())
	}

	none, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, IDNone, none.ID())

	_, err = ByName("brotli")
	assert.Error(t, err)
	_, err = ByID(0x42)
	assert.Error(t, err)
}

func TestMaybeCompress(t *testing.T) {
	lz4c := NewLZ4Compressor()

	t.Run("below threshold stays raw", func(t *testing.T) {
		payload := compressible(100)
		out, id := MaybeCompress(lz4c, payload, 4096)
		assert.Equal(t, IDNone, id)
		assert.Equal(t, payload, out)
	})

	t.Run("compressible above threshold", func(t *testing.T) {
		payload := compressible(1 << 20)
		out, id := MaybeCompress(lz4c, payload, 4096)
		assert.Equal(t, IDLZ4, id)
		assert.Less(t, len(out), len(payload))

		restored, err := Decompress(id, out, 0)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(payload, restored))
	})

	t.Run("random data stays raw", func(t *testing.T) {
		for _, n := range []int{8 * 1024, 1 << 20} {
			payload := random(t, n)
			out, id := MaybeCompress(lz4c, payload, 4096)
			assert.Equal(t, IDNone, id)
			assert.LessOrEqual(t, len(out), len(payload))
		}
	})

	t.Run("nil and none compressor", func(t *testing.T) {
		payload := compressible(1 << 16)
		_, id := MaybeCompress(nil, payload, 0)
		assert.Equal(t, IDNone, id)
		_, id = MaybeCompress(NewNoneCompressor(), payload, 0)
		assert.Equal(t, IDNone, id)
	})
}

func TestMaybeCompressNeverGrows(t *testing.T) {
	for _, name := range Names() {
		c, err := ByName(name)
		require.NoError(t, err)

		for _, n := range []int{1, 17, 4096, 70 * 1024} {
			payload := random(t, n)
			out, _ := MaybeCompress(c, payload, 0)
			assert.LessOrEqual(t, len(out), len(payload), "%s grew a %d byte payload", name, n)
		}
	}
}

func TestDecompressCorrupt(t *testing.T) {
	for _, id := range []byte{IDLZ4, IDSnappy, IDZstd} {
		_, err := Decompress(id, []byte{0xff, 0xff, 0xff, 0xff, 0x0f, 1, 2, 3}, 0)
		assert.Error(t, err, "compressor 0x%02x accepted garbage", id)
	}
	_, err := Decompress(0x42, []byte("x"), 0)
	assert.Error(t, err)
}

func TestDecompressRespectsLimit(t *testing.T) {
	payload := make([]byte, 1<<20)

	for _, name := range []string{"lz4", "snappy", "zstd"} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			require.NoError(t, err)
			compressed, err := c.Compress(payload)
			require.NoError(t, err)

			_, err = c.Decompress(compressed, 64*1024)
			assert.ErrorIs(t, err, ErrTooLarge)

			restored, err := c.Decompress(compressed, 2<<20)
			require.NoError(t, err)
			assert.Len(t, restored, len(payload))
		})
	}
}

func TestDecompressAnnouncedSizeNotAllocated(t *testing.T) {
	// a few bytes announcing 2 GiB of output
	forged := binary.AppendUvarint(nil, 1<<31)
	forged = append(forged, 0x00, 0x01, 0x02)

	for _, id := range []byte{IDLZ4, IDSnappy} {
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := Decompress(id, forged, 0)
		runtime.ReadMemStats(&after)

		assert.ErrorIs(t, err, ErrTooLarge, "compressor 0x%02x", id)
		assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20), "compressor 0x%02x", id)
	}
}

func TestByteSample(t *testing.T) {
	data := compressible(100 * 1024)
	sample := byteSample(data, sampleSize, sampleCount)
	assert.Len(t, sample, sampleSize*sampleCount)
	assert.Equal(t, data[:sampleSize], sample[:sampleSize])
	assert.Equal(t, data[len(data)-sampleSize:], sample[len(sample)-sampleSize:])

	short := compressible(100)
	assert.Equal(t, short, byteSample(short, sampleSize, sampleCount))
}
