package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// npyMagic opens every NPY file.
const npyMagic = "\x93NUMPY"

// npyAlign is the header alignment numpy has used since 1.17.
const npyAlign = 64

// npyArrayName is the member name savez_compressed gives to the data= keyword.
const npyArrayName = "data.npy"

// Matrix is a dense row-major float64 array.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// At returns element (i, j).
func (m Matrix) At(i, j int) float64 { return m.Data[i*m.Cols+j] }

// npyHeader builds the version 1.0 header for a little-endian float64 array.
func npyHeader(rows, cols int) []byte {
	dict := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// magic(6) + version(2) + length(2) + dict + padding + '\n'
	total := len(npyMagic) + 4 + len(dict) + 1
	pad := (npyAlign - total%npyAlign) % npyAlign
	dict += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(dict)))
	buf.WriteString(dict)
	return buf.Bytes()
}

// WriteNPY writes m as an NPY 1.0 array.
func WriteNPY(w io.Writer, m Matrix) error {
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("matrix data length %d does not match shape (%d, %d)", len(m.Data), m.Rows, m.Cols)
	}
	if _, err := w.Write(npyHeader(m.Rows, m.Cols)); err != nil {
		return err
	}
	body := make([]byte, 8*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint64(body[8*i:], math.Float64bits(v))
	}
	_, err := w.Write(body)
	return err
}

var shapeRe = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+)\)`)

// ReadNPY reads a 2-D little-endian float64 NPY 1.0 array in C order.
func ReadNPY(r io.Reader) (Matrix, error) {
	pre := make([]byte, len(npyMagic)+4)
	if _, err := io.ReadFull(r, pre); err != nil {
		return Matrix{}, fmt.Errorf("read npy preamble: %w", err)
	}
	if string(pre[:len(npyMagic)]) != npyMagic {
		return Matrix{}, errors.New("not an npy file")
	}
	if pre[6] != 1 {
		return Matrix{}, fmt.Errorf("unsupported npy version %d.%d", pre[6], pre[7])
	}
	hlen := binary.LittleEndian.Uint16(pre[8:])
	header := make([]byte, hlen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Matrix{}, fmt.Errorf("read npy header: %w", err)
	}
	h := string(header)
	if !strings.Contains(h, "'descr': '<f8'") || !strings.Contains(h, "'fortran_order': False") {
		return Matrix{}, fmt.Errorf("unsupported npy header %q", strings.TrimSpace(h))
	}
	match := shapeRe.FindStringSubmatch(h)
	if match == nil {
		return Matrix{}, fmt.Errorf("npy header has no 2-D shape: %q", strings.TrimSpace(h))
	}
	rows, _ := strconv.Atoi(match[1])
	cols, _ := strconv.Atoi(match[2])

	body := make([]byte, 8*rows*cols)
	if _, err := io.ReadFull(r, body); err != nil {
		return Matrix{}, fmt.Errorf("read npy data: %w", err)
	}
	m := Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
	for i := range m.Data {
		m.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[8*i:]))
	}
	return m, nil
}

// WriteNPZArchive writes m as the single "data" array of a deflate
// compressed npz archive.
func WriteNPZArchive(w io.Writer, m Matrix) error {
	zw := zip.NewWriter(w)
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: npyArrayName, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create %s: %w", npyArrayName, err)
	}
	if err := WriteNPY(fw, m); err != nil {
		return fmt.Errorf("write %s: %w", npyArrayName, err)
	}
	return zw.Close()
}

// ReadNPZArchive reads the "data" array back from an npz archive.
func ReadNPZArchive(data []byte) (Matrix, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Matrix{}, fmt.Errorf("open npz: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != npyArrayName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Matrix{}, err
		}
		defer rc.Close()
		return ReadNPY(rc)
	}
	return Matrix{}, fmt.Errorf("npz has no %s member", npyArrayName)
}
