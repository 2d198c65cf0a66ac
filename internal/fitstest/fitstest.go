// Package fitstest builds synthetic FITS headers and files for tests.
package fitstest

import (
	"fmt"
	"strings"

	"github.com/jbcurtin/astro-cloud/fits"
)

// Card formats a value card. String values must already carry their quotes.
func Card(keyword, value string) string {
	c := fmt.Sprintf("%-8s= %20s", keyword, value)
	return pad(c, fits.CardSize)
}

// Comment formats a commentary card.
func Comment(keyword, text string) string {
	return pad(fmt.Sprintf("%-8s%s", keyword, text), fits.CardSize)
}

// Header joins cards, appends the END card and pads to whole blocks.
func Header(cards ...string) []byte {
	text := strings.Join(cards, "") + pad(fits.EndKeyword, fits.CardSize)
	return []byte(pad(text, blocks(len(text))))
}

// Data returns n bytes of zero-filled data padded to whole blocks.
func Data(n int) []byte {
	return make([]byte, blocks(n))
}

// Primary returns a primary header without a data array.
func Primary(extra ...string) []byte {
	cards := []string{
		Card("SIMPLE", "T"),
		Card("BITPIX", "8"),
		Card("NAXIS", "0"),
		Card("EXTEND", "T"),
	}
	return Header(append(cards, extra...)...)
}

// Image returns an IMAGE extension header.
func Image(bitpix int, axes ...int) []byte {
	cards := []string{
		Card("XTENSION", "'IMAGE   '"),
		Card("BITPIX", fmt.Sprint(bitpix)),
		Card("NAXIS", fmt.Sprint(len(axes))),
	}
	for i, n := range axes {
		cards = append(cards, Card(fmt.Sprintf("NAXIS%d", i+1), fmt.Sprint(n)))
	}
	cards = append(cards, Card("PCOUNT", "0"), Card("GCOUNT", "1"))
	return Header(cards...)
}

// BinTable returns a BINTABLE extension header.
func BinTable(rowWidth, rows int) []byte {
	return Header(
		Card("XTENSION", "'BINTABLE'"),
		Card("BITPIX", "8"),
		Card("NAXIS", "2"),
		Card("NAXIS1", fmt.Sprint(rowWidth)),
		Card("NAXIS2", fmt.Sprint(rows)),
		Card("PCOUNT", "0"),
		Card("GCOUNT", "1"),
		Card("TFIELDS", "1"),
	)
}

// Concat joins segments into one file image.
func Concat(segments ...[]byte) []byte {
	var out []byte
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}

func blocks(n int) int {
	if n == 0 {
		return 0
	}
	return (n + fits.BlockSize - 1) / fits.BlockSize * fits.BlockSize
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
