package embedding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// ErrNoVocabulary is returned by LoadVocabulary when the file does not exist.
var ErrNoVocabulary = errors.New("vocabulary file not found")

// Save persists the vocabulary to path. The directory is created if needed.
// Format (little endian): dimension (4), n (4), then per token: tokenLen (4),
// token bytes, count (4), vector (dimension*8 bytes).
func (v *Vocabulary) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create vocabulary dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vocabulary file: %w", err)
	}
	defer f.Close()
	if err := v.WriteBinary(f); err != nil {
		return err
	}
	return f.Close()
}

// WriteBinary writes the binary vocabulary format to w.
func (v *Vocabulary) WriteBinary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(v.Dimension())); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(v.Len())); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, tok := range v.tokens {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(tok))); err != nil {
			return fmt.Errorf("write token len: %w", err)
		}
		if _, err := bw.WriteString(tok); err != nil {
			return fmt.Errorf("write token: %w", err)
		}
		var count uint32
		if v.counts != nil {
			count = uint32(v.counts[i])
		}
		if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
			return fmt.Errorf("write token count: %w", err)
		}
		if _, err := bw.Write(float64SliceToBytes(v.vectors.RawRowView(i))); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

// LoadVocabulary reads a vocabulary written by Save. A missing file yields ErrNoVocabulary.
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoVocabulary
		}
		return nil, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()
	return ReadBinary(f)
}

// ReadBinary reads the binary vocabulary format from r.
func ReadBinary(r io.Reader) (*Vocabulary, error) {
	br := bufio.NewReader(r)
	var dim, n uint32
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	tokens := make([]string, 0, n)
	counts := make([]int, 0, n)
	vectors := make([][]float64, 0, n)
	buf := make([]byte, int(dim)*8)
	for i := uint32(0); i < n; i++ {
		var tokLen, count uint32
		if err := binary.Read(br, binary.LittleEndian, &tokLen); err != nil {
			return nil, fmt.Errorf("read token len: %w", err)
		}
		tok := make([]byte, tokLen)
		if _, err := io.ReadFull(br, tok); err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("read token count: %w", err)
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		tokens = append(tokens, string(tok))
		counts = append(counts, int(count))
		vectors = append(vectors, bytesToFloat64Slice(buf))
	}
	return newVocabulary(tokens, counts, vectors)
}

func float64SliceToBytes(s []float64) []byte {
	const size = 8
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint64(out[i*size:(i+1)*size], math.Float64bits(v))
	}
	return out
}

func bytesToFloat64Slice(b []byte) []float64 {
	const size = 8
	out := make([]float64, len(b)/size)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*size : (i+1)*size]))
	}
	return out
}
