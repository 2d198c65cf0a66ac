package fits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbcurtin/astro-cloud/fits"
	"github.com/jbcurtin/astro-cloud/internal/fitstest"
)

func mustParse(t *testing.T, block []byte) *fits.Header {
	t.Helper()
	h, err := fits.ParseHeader(string(block))
	require.NoError(t, err)
	return h
}

func TestElementSize(t *testing.T) {
	tests := []struct {
		bitpix int64
		want   int64
	}{
		{8, 1},
		{16, 2},
		{32, 4},
		{-32, 4},
		{-64, 8},
	}

	for _, tt := range tests {
		got, err := fits.ElementSize(tt.bitpix)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "BITPIX %d", tt.bitpix)
	}

	for _, unsupported := range []int64{64, 0, 12, -16} {
		_, err := fits.ElementSize(unsupported)
		assert.ErrorIs(t, err, fits.ErrNotImplemented, "BITPIX %d", unsupported)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		block []byte
		want  fits.HDU
	}{
		{
			name:  "primary",
			block: fitstest.Primary(),
			want:  fits.Primary{BitPix: 8, Axes: []int64{}},
		},
		{
			name:  "image",
			block: fitstest.Image(16, 10, 5),
			want:  fits.Image{BitPix: 16, GCount: 1, PCount: 0, Axes: []int64{10, 5}},
		},
		{
			name:  "bintable",
			block: fitstest.BinTable(24, 100),
			want:  fits.BinTable{RowWidth: 24, Rows: 100},
		},
		{
			name:  "ascii table",
			block: fitstest.Header(fitstest.Card("XTENSION", "'TABLE   '")),
			want:  fits.ASCIITable{},
		},
		{
			name:  "unknown extension",
			block: fitstest.Header(fitstest.Card("XTENSION", "'A3DTABLE'")),
			want:  fits.Unknown{Extension: "A3DTABLE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fits.Classify(mustParse(t, tt.block))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextHeaderOffset_Reference(t *testing.T) {
	t.Run("primary adds no data size", func(t *testing.T) {
		h := mustParse(t, fitstest.Header(
			fitstest.Card("SIMPLE", "T"),
			fitstest.Card("BITPIX", "16"),
			fitstest.Card("NAXIS", "2"),
			fitstest.Card("NAXIS1", "100"),
			fitstest.Card("NAXIS2", "100"),
		))

		next, err := fits.NextHeaderOffset(0, fits.BlockSize, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(fits.BlockSize), next)
	})

	t.Run("primary dimensions are not read", func(t *testing.T) {
		h := mustParse(t, fitstest.Header(
			fitstest.Card("SIMPLE", "T"),
			fitstest.Card("BITPIX", "16"),
			fitstest.Card("NAXIS", "2"),
			fitstest.Card("NAXIS1", "100"),
			fitstest.Card("NAXIS2", "'wide'"),
		))

		next, err := fits.NextHeaderOffset(0, fits.BlockSize, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(fits.BlockSize), next)

		_, err = fits.NextHeaderOffset(0, fits.BlockSize, h, fits.ModePadded)
		assert.ErrorIs(t, err, fits.ErrInvalidHeader)
	})

	t.Run("primary spanning two blocks", func(t *testing.T) {
		h := mustParse(t, fitstest.Primary())

		// END sits in the block at 2880.
		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(8640), next)
	})

	t.Run("small image rounds down to zero blocks", func(t *testing.T) {
		h := mustParse(t, fitstest.Image(16, 10, 5))

		img, err := fits.Classify(h)
		require.NoError(t, err)
		size, err := fits.ImageDataSize(img.(fits.Image))
		require.NoError(t, err)
		assert.Equal(t, int64(2*1*(0+50)), size)

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(8640), next)
	})

	t.Run("large image rounds down to whole blocks", func(t *testing.T) {
		h := mustParse(t, fitstest.Image(-32, 100, 100))

		// 4 * 10000 = 40000 bytes, 13 whole blocks.
		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(13*2880+8640), next)
	})

	t.Run("image with pcount and gcount", func(t *testing.T) {
		h := mustParse(t, fitstest.Header(
			fitstest.Card("XTENSION", "'IMAGE   '"),
			fitstest.Card("BITPIX", "8"),
			fitstest.Card("NAXIS", "1"),
			fitstest.Card("NAXIS1", "2880"),
			fitstest.Card("PCOUNT", "2880"),
			fitstest.Card("GCOUNT", "2"),
		))

		// 1 * 2 * (2880 + 2880) = 11520 bytes, exactly 4 blocks.
		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(4*2880+8640), next)
	})

	t.Run("image without axes uses an empty product of one", func(t *testing.T) {
		h := mustParse(t, fitstest.Image(8))

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(8640), next)
	})

	t.Run("bintable is not rounded", func(t *testing.T) {
		h := mustParse(t, fitstest.BinTable(24, 100))

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModeReference)
		require.NoError(t, err)
		assert.Equal(t, int64(24*100+8640), next)
	})
}

func TestNextHeaderOffset_Padded(t *testing.T) {
	t.Run("primary data is padded", func(t *testing.T) {
		h := mustParse(t, fitstest.Header(
			fitstest.Card("SIMPLE", "T"),
			fitstest.Card("BITPIX", "16"),
			fitstest.Card("NAXIS", "2"),
			fitstest.Card("NAXIS1", "100"),
			fitstest.Card("NAXIS2", "100"),
		))

		// 20000 bytes pad to 7 blocks.
		next, err := fits.NextHeaderOffset(0, 2880, h, fits.ModePadded)
		require.NoError(t, err)
		assert.Equal(t, int64(2880+7*2880), next)
	})

	t.Run("primary without data", func(t *testing.T) {
		h := mustParse(t, fitstest.Primary())

		next, err := fits.NextHeaderOffset(0, 2880, h, fits.ModePadded)
		require.NoError(t, err)
		assert.Equal(t, int64(2880), next)
	})

	t.Run("data starts at length", func(t *testing.T) {
		h := mustParse(t, fitstest.Primary())

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModePadded)
		require.NoError(t, err)
		assert.Equal(t, int64(5760), next)
	})

	t.Run("small image pads to one block", func(t *testing.T) {
		h := mustParse(t, fitstest.Image(16, 10, 5))

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModePadded)
		require.NoError(t, err)
		assert.Equal(t, int64(5760+2880), next)
	})

	t.Run("image without axes has no data", func(t *testing.T) {
		h := mustParse(t, fitstest.Image(8))

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModePadded)
		require.NoError(t, err)
		assert.Equal(t, int64(5760), next)
	})

	t.Run("bintable pads to one block", func(t *testing.T) {
		h := mustParse(t, fitstest.BinTable(24, 100))

		next, err := fits.NextHeaderOffset(2880, 5760, h, fits.ModePadded)
		require.NoError(t, err)
		assert.Equal(t, int64(5760+2880), next)
	})
}

func TestNextHeaderOffset_Errors(t *testing.T) {
	tests := []struct {
		name  string
		block []byte
		want  error
	}{
		{
			name:  "ascii table",
			block: fitstest.Header(fitstest.Card("XTENSION", "'TABLE   '")),
			want:  fits.ErrNotImplemented,
		},
		{
			name:  "unknown extension",
			block: fitstest.Header(fitstest.Card("XTENSION", "'FOREIGN '")),
			want:  fits.ErrNotImplemented,
		},
		{
			name:  "neither primary nor extension",
			block: fitstest.Header(fitstest.Card("SIMPLE", "F")),
			want:  fits.ErrNotImplemented,
		},
		{
			name:  "unsupported bitpix",
			block: fitstest.Image(64, 10),
			want:  fits.ErrNotImplemented,
		},
		{
			name: "image missing axis length",
			block: fitstest.Header(
				fitstest.Card("XTENSION", "'IMAGE   '"),
				fitstest.Card("BITPIX", "8"),
				fitstest.Card("NAXIS", "2"),
				fitstest.Card("NAXIS1", "10"),
				fitstest.Card("PCOUNT", "0"),
				fitstest.Card("GCOUNT", "1"),
			),
			want: fits.ErrInvalidHeader,
		},
		{
			name: "bintable missing row count",
			block: fitstest.Header(
				fitstest.Card("XTENSION", "'BINTABLE'"),
				fitstest.Card("NAXIS1", "10"),
			),
			want: fits.ErrInvalidHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fits.NextHeaderOffset(0, fits.BlockSize, mustParse(t, tt.block), fits.ModeReference)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseExtentMode(t *testing.T) {
	mode, err := fits.ParseExtentMode("")
	require.NoError(t, err)
	assert.Equal(t, fits.ModeReference, mode)

	mode, err = fits.ParseExtentMode("Padded")
	require.NoError(t, err)
	assert.Equal(t, fits.ModePadded, mode)
	assert.Equal(t, "padded", mode.String())

	_, err = fits.ParseExtentMode("ceil")
	assert.Error(t, err)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "PRIMARY", fits.Kind(mustParse(t, fitstest.Primary())))
	assert.Equal(t, "BINTABLE", fits.Kind(mustParse(t, fitstest.BinTable(1, 1))))
	assert.Equal(t, "UNKNOWN", fits.Kind(mustParse(t, fitstest.Header(fitstest.Card("FOO", "1")))))
}
