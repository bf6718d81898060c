package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = bytes.Repeat([]byte("run=1 lumi=7 jetPt=[40.5 31.2 25.0] "), 64)

func TestCompressorRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
			require.NoError(t, err)
			assert.Equal(t, alg, c.Algorithm())
			assert.Equal(t, Default, c.Level())

			compressed, err := c.Compress(sample)
			require.NoError(t, err)
			if alg != None {
				assert.Less(t, len(compressed), len(sample))
			}

			out, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, sample, out)

			var stream bytes.Buffer
			require.NoError(t, c.CompressStream(&stream, bytes.NewReader(sample)))
			var back bytes.Buffer
			require.NoError(t, c.DecompressStream(&back, bytes.NewReader(stream.Bytes())))
			assert.Equal(t, sample, back.Bytes())
		})
	}
}

func TestNewReader(t *testing.T) {
	for _, alg := range []Algorithm{Gzip, Snappy, LZ4, Zstd, S2} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: alg, Level: Fastest})
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, c.CompressStream(&buf, bytes.NewReader(sample)))

			r, err := NewReader(alg, &buf)
			require.NoError(t, err)
			defer r.Close()
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, out)
		})
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "brotli"})
	assert.Error(t, err)
	_, err = NewReader("brotli", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		alg  Algorithm
		base string
	}{
		{"events.arrow.zst", Zstd, "events.arrow"},
		{"events.avro.GZ", Gzip, "events.avro"},
		{"/data/tuple.arrow.lz4", LZ4, "/data/tuple.arrow"},
		{"tuple.avro.sz", Snappy, "tuple.avro"},
		{"tuple.arrow.s2", S2, "tuple.arrow"},
		{"tuple.arrow", None, "tuple.arrow"},
	}
	for _, tt := range tests {
		alg, base := FromPath(tt.path)
		assert.Equal(t, tt.alg, alg, tt.path)
		assert.Equal(t, tt.base, base, tt.path)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "Fastest", Fastest.String())
	assert.Equal(t, "Best", Best.String())
	assert.Equal(t, "Unknown", Level(42).String())
}
