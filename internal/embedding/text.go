package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadText reads vectors in word2vec text format: an optional "<count> <dim>"
// header followed by one "token v1 ... vD" line per token. Files without a
// header (GloVe style) take their dimension from the first line.
func LoadText(r io.Reader) (*Vocabulary, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		tokens   []string
		vectors  [][]float64
		dim      int
		expected = -1
		line     int
	)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && len(fields) == 2 {
			n, errN := strconv.Atoi(fields[0])
			d, errD := strconv.Atoi(fields[1])
			if errN == nil && errD == nil {
				expected, dim = n, d
				continue
			}
		}
		if dim == 0 {
			dim = len(fields) - 1
		}
		if len(fields)-1 != dim {
			return nil, fmt.Errorf("line %d: %w: got %d values, expected %d", line, ErrDimensionMismatch, len(fields)-1, dim)
		}
		vec := make([]float64, dim)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse value %q: %w", line, f, err)
			}
			vec[i] = v
		}
		tokens = append(tokens, fields[0])
		vectors = append(vectors, vec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	if expected >= 0 && expected != len(tokens) {
		return nil, fmt.Errorf("header declares %d vectors, found %d", expected, len(tokens))
	}
	return NewVocabulary(tokens, vectors)
}

// LoadTextFile opens path and calls LoadText.
func LoadTextFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors file: %w", err)
	}
	defer f.Close()
	return LoadText(f)
}

// WriteText writes v in word2vec text format with a header line.
func WriteText(w io.Writer, v *Vocabulary) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", v.Len(), v.Dimension()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf := make([]byte, 0, 32)
	for i, tok := range v.tokens {
		bw.WriteString(tok)
		for _, x := range v.vectors.RawRowView(i) {
			bw.WriteByte(' ')
			buf = strconv.AppendFloat(buf[:0], x, 'f', 6, 64)
			bw.Write(buf)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush vectors: %w", err)
	}
	return nil
}
