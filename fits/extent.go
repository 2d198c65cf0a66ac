package fits

import (
	"fmt"
	"strings"
)

// ExtentMode selects the arithmetic used to locate the next header.
type ExtentMode int

const (
	// ModeReference reproduces the historical rules, applied to offset+length:
	// a primary header adds no data size and its dimensions are never read,
	// image data is rounded down to a block, and binary table data is added
	// unrounded. Past the first block of a file offset is counted twice.
	ModeReference ExtentMode = iota

	// ModePadded follows the on-disk layout of the format: the data segment
	// starts at length and every data segment, the primary one included, is
	// padded up to a whole number of blocks.
	ModePadded
)

// ParseExtentMode parses "reference" or "padded".
func ParseExtentMode(s string) (ExtentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reference":
		return ModeReference, nil
	case "padded":
		return ModePadded, nil
	default:
		return 0, fmt.Errorf("invalid extent mode: %s (valid modes: reference, padded)", s)
	}
}

func (m ExtentMode) String() string {
	if m == ModePadded {
		return "padded"
	}
	return "reference"
}

// HDU is the declared layout of one header data unit. It is closed: the
// cases are Primary, Image, BinTable, ASCIITable and Unknown.
type HDU interface {
	hdu()
}

// Primary is the first header of a file (SIMPLE = T).
type Primary struct {
	BitPix int64
	Axes   []int64
}

// Image is an IMAGE extension.
type Image struct {
	BitPix int64
	GCount int64
	PCount int64
	Axes   []int64
}

// BinTable is a BINTABLE extension. RowWidth is NAXIS1 and Rows is NAXIS2.
type BinTable struct {
	RowWidth int64
	Rows     int64
	PCount   int64
}

// ASCIITable is a TABLE extension.
type ASCIITable struct{}

// Unknown is any other header, including extensions this package does not recognise.
type Unknown struct {
	Extension string
}

func (Primary) hdu()    {}
func (Image) hdu()      {}
func (BinTable) hdu()   {}
func (ASCIITable) hdu() {}
func (Unknown) hdu()    {}

// Classify reads the keywords that describe the data segment following h.
// Rules are checked in priority order: primary, IMAGE, BINTABLE, TABLE.
func Classify(h *Header) (HDU, error) {
	if isPrimary(h) {
		bitpix, err := h.IntOr("BITPIX", 0)
		if err != nil {
			return nil, err
		}
		axes, err := readAxes(h, false)
		if err != nil {
			return nil, err
		}
		return Primary{BitPix: bitpix, Axes: axes}, nil
	}

	xtension, _ := h.String("XTENSION")
	switch xtension {
	case "IMAGE":
		bitpix, err := h.Int("BITPIX")
		if err != nil {
			return nil, err
		}
		gcount, err := h.Int("GCOUNT")
		if err != nil {
			return nil, err
		}
		pcount, err := h.Int("PCOUNT")
		if err != nil {
			return nil, err
		}
		axes, err := readAxes(h, true)
		if err != nil {
			return nil, err
		}
		return Image{BitPix: bitpix, GCount: gcount, PCount: pcount, Axes: axes}, nil

	case "BINTABLE":
		width, err := h.Int("NAXIS1")
		if err != nil {
			return nil, err
		}
		rows, err := h.Int("NAXIS2")
		if err != nil {
			return nil, err
		}
		pcount, err := h.IntOr("PCOUNT", 0)
		if err != nil {
			return nil, err
		}
		return BinTable{RowWidth: width, Rows: rows, PCount: pcount}, nil

	case "TABLE":
		return ASCIITable{}, nil

	default:
		return Unknown{Extension: xtension}, nil
	}
}

func readAxes(h *Header, required bool) ([]int64, error) {
	var naxis int64
	var err error
	if required {
		naxis, err = h.Int("NAXIS")
	} else {
		naxis, err = h.IntOr("NAXIS", 0)
	}
	if err != nil {
		return nil, err
	}
	if naxis < 0 || naxis > 999 {
		return nil, fmt.Errorf("NAXIS out of range: %d: %w", naxis, ErrInvalidHeader)
	}

	axes := make([]int64, 0, naxis)
	for i := int64(1); i <= naxis; i++ {
		n, err := h.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return nil, err
		}
		axes = append(axes, n)
	}
	return axes, nil
}

// ElementSize returns the byte width of one data element for a BITPIX code.
// Only 8, 16, 32, -32 and -64 are supported.
func ElementSize(bitpix int64) (int64, error) {
	switch bitpix {
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	case 32, -32:
		return 4, nil
	case -64:
		return 8, nil
	default:
		return 0, fmt.Errorf("BITPIX[%d]: %w", bitpix, ErrNotImplemented)
	}
}

// ImageDataSize returns elementSize * GCOUNT * (PCOUNT + product of axes).
// The product of no axes is 1, as the historical rule computes it.
func ImageDataSize(img Image) (int64, error) {
	element, err := ElementSize(img.BitPix)
	if err != nil {
		return 0, err
	}
	return element * img.GCount * (img.PCount + product(img.Axes)), nil
}

func product(axes []int64) int64 {
	p := int64(1)
	for _, n := range axes {
		p *= n
	}
	return p
}

func padToBlock(n int64) int64 {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

// NextHeaderOffset returns the absolute offset at which the header following
// h is expected to begin. offset is where the block holding h's END card
// starts and length is the absolute offset just past that block.
func NextHeaderOffset(offset, length int64, h *Header, mode ExtentMode) (int64, error) {
	end := length
	if mode == ModeReference {
		end = offset + length
		if isPrimary(h) {
			return end, nil
		}
	}

	hdu, err := Classify(h)
	if err != nil {
		return 0, err
	}

	switch v := hdu.(type) {
	case Primary:
		size, err := primaryDataSize(v)
		if err != nil {
			return 0, err
		}
		return end + padToBlock(size), nil

	case Image:
		size, err := ImageDataSize(v)
		if err != nil {
			return 0, err
		}
		if mode == ModeReference {
			return size/BlockSize*BlockSize + end, nil
		}
		if len(v.Axes) == 0 {
			return end, nil
		}
		return padToBlock(size) + end, nil

	case BinTable:
		if mode == ModeReference {
			return v.RowWidth*v.Rows + end, nil
		}
		return padToBlock(v.RowWidth*v.Rows+v.PCount) + end, nil

	case ASCIITable:
		return 0, fmt.Errorf("TABLE: %w", ErrNotImplemented)

	case Unknown:
		if v.Extension == "" {
			return 0, fmt.Errorf("header is neither primary nor an extension: %w", ErrNotImplemented)
		}
		return 0, fmt.Errorf("XTENSION[%s]: %w", v.Extension, ErrNotImplemented)

	default:
		return 0, fmt.Errorf("%T: %w", hdu, ErrNotImplemented)
	}
}

// primaryDataSize follows the standard: no axes means no data array.
func primaryDataSize(p Primary) (int64, error) {
	if len(p.Axes) == 0 {
		return 0, nil
	}
	element, err := ElementSize(p.BitPix)
	if err != nil {
		return 0, err
	}
	return element * product(p.Axes), nil
}

// Kind returns a short label for the header: PRIMARY, the XTENSION value, or UNKNOWN.
func Kind(h *Header) string {
	if isPrimary(h) {
		return "PRIMARY"
	}
	if x, ok := h.String("XTENSION"); ok && x != "" {
		return x
	}
	return "UNKNOWN"
}

func isPrimary(h *Header) bool {
	simple, _ := h.Bool("SIMPLE")
	return simple
}
