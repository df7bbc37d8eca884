package disparity

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Binary layout: little-endian int64 width and height, then row-major cells
// of one validity byte followed by two float64 displacement components.

const maxFieldDim = 100000

// ParseField reads a disparity field from a file, transparently
// decompressing when the name ends in ".gz".
func ParseField(fn string) (*Field, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var in io.Reader = f
	if filepath.Ext(fn) == ".gz" {
		gin, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(gin.Close)
		in = gin
	}
	return ReadField(bufio.NewReader(in))
}

// ReadField reads a disparity field from a stream.
func ReadField(in io.Reader) (*Field, error) {
	var width, height int64
	if err := binary.Read(in, binary.LittleEndian, &width); err != nil {
		return nil, err
	}
	if err := binary.Read(in, binary.LittleEndian, &height); err != nil {
		return nil, err
	}
	if width <= 0 || width >= maxFieldDim || height <= 0 || height >= maxFieldDim {
		return nil, errors.Errorf("bad width or height for disparity field %v %v", width, height)
	}

	f := NewField(int(width), int(height))
	cell := make([]byte, 1+2*8)
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			if _, err := io.ReadFull(in, cell); err != nil {
				return nil, err
			}
			if cell[0] == 0 {
				continue
			}
			f.Set(x, y, r2.Point{
				X: math.Float64frombits(binary.LittleEndian.Uint64(cell[1:9])),
				Y: math.Float64frombits(binary.LittleEndian.Uint64(cell[9:17])),
			})
		}
	}
	return f, nil
}

// WriteToFile writes the field to a file, compressing when the name ends in ".gz".
func (f *Field) WriteToFile(fn string) error {
	out, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(out.Close)

	var w io.Writer = out
	var gout *gzip.Writer
	if filepath.Ext(fn) == ".gz" {
		gout = gzip.NewWriter(out)
		w = gout
	}

	if err := f.WriteTo(w); err != nil {
		return err
	}
	if gout != nil {
		if err := gout.Close(); err != nil {
			return err
		}
	}
	return out.Sync()
}

// WriteTo writes the field to a stream.
func (f *Field) WriteTo(out io.Writer) error {
	if err := binary.Write(out, binary.LittleEndian, int64(f.width)); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, int64(f.height)); err != nil {
		return err
	}
	cell := make([]byte, 1+2*8)
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			d, ok := f.Get(x, y)
			cell[0] = 0
			if ok {
				cell[0] = 1
			}
			binary.LittleEndian.PutUint64(cell[1:9], math.Float64bits(d.X))
			binary.LittleEndian.PutUint64(cell[9:17], math.Float64bits(d.Y))
			if _, err := out.Write(cell); err != nil {
				return err
			}
		}
	}
	return nil
}
