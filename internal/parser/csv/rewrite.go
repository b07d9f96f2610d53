package csv

import (
	"bufio"
	"bytes"
	"io"
)

// Replacement is a byte sequence fixed up before the CSV reader sees it.
// Real exports occasionally carry broken quoting around a known phrase;
// rewriting it in flight is cheaper than failing the whole row.
type Replacement struct {
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

// streamingRewriter replaces every occurrence of pat with repl without
// buffering the whole stream. The last len(pat)-1 bytes of each block are
// carried into the next one so matches spanning a chunk boundary are found.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	carry []byte
	buf   bytes.Buffer
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	capacity := 0
	if n := len(pat) - 1; n > 0 {
		capacity = n
	}
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		pat:   pat,
		repl:  repl,
		carry: make([]byte, 0, capacity),
	}
}

// withReplacements chains one rewriter per replacement.
func withReplacements(r io.Reader, reps []Replacement) io.Reader {
	for _, rep := range reps {
		if rep.From == "" || rep.From == rep.To {
			continue
		}
		r = newStreamingRewriter(r, []byte(rep.From), []byte(rep.To))
	}
	return r
}

func (sr *streamingRewriter) Read(p []byte) (int, error) {
	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}

	tmp := make([]byte, 64*1024)
	n, rerr := sr.br.Read(tmp)
	if n > 0 {
		block := tmp[:n]
		if len(sr.carry) > 0 {
			joined := make([]byte, 0, len(sr.carry)+len(block))
			joined = append(joined, sr.carry...)
			joined = append(joined, block...)
			block = joined
		}
		block = bytes.ReplaceAll(block, sr.pat, sr.repl)

		// Hold back k bytes: a match may start there and finish in the next
		// chunk.
		k := len(sr.pat) - 1
		if k > 0 && len(block) > k {
			sr.buf.Write(block[:len(block)-k])
			sr.carry = append(sr.carry[:0], block[len(block)-k:]...)
		} else if k > 0 {
			sr.carry = append(sr.carry[:0], block...)
		} else {
			sr.buf.Write(block)
		}
	}

	switch {
	case rerr == io.EOF:
		if len(sr.carry) > 0 {
			sr.buf.Write(sr.carry)
			sr.carry = sr.carry[:0]
		}
		sr.eof = true
	case rerr != nil:
		return 0, rerr
	}

	if sr.buf.Len() > 0 {
		return sr.buf.Read(p)
	}
	if sr.eof {
		return 0, io.EOF
	}
	return 0, nil
}
