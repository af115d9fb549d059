// Command cuckoo-hashdump reads keys from standard input, one per line, and
// prints the raw hashes and bucket indices a cuckoo filter derives from them.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kwertop/cuckoo/hash"
)

type DumpArgs struct {
	Exponent uint8 `arg:"--exponent,env:CUCKOO_EXPONENT" default:"32" help:"log2 of the number of buckets used to mask the indices"`
}

// describe lists every intermediate value of the addressing of _key_
func describe(h hash.Hasher, key []byte, mask uint64) []table.Row {
	h0 := h.IndexHash(key)
	fingerPrint := h.FingerPrint(key)
	h1 := h0 ^ fingerPrint
	h1Derived := (h0 & mask) ^ fingerPrint
	return []table.Row{
		{"index hash (H0)", fmt.Sprintf("%016x", h0)},
		{"fingerprint hash", fmt.Sprintf("%016x", fingerPrint)},
		{"index hash (H1)", fmt.Sprintf("%016x", h1)},
		{"H0 (masked)", fmt.Sprintf("%016x", h0&mask)},
		{"H1 (masked)", fmt.Sprintf("%016x", h1&mask)},
		{"H1 (derived)", fmt.Sprintf("%016x", h1Derived)},
		{"H1 (derived, masked)", fmt.Sprintf("%016x", h1Derived&mask)},
		{"H0 (recovered)", fmt.Sprintf("%016x", hash.AlternateIndex(h1Derived&mask, fingerPrint, mask))},
	}
}

func dump(r io.Reader, w io.Writer, h hash.Hasher, mask uint64) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key := bytes.TrimSpace(scanner.Bytes())
		tbl := table.NewWriter()
		tbl.SetOutputMirror(w)
		tbl.SetStyle(table.StyleLight)
		tbl.SetTitle(string(key))
		tbl.AppendRows(describe(h, key, mask))
		tbl.Render()
	}
	return scanner.Err()
}

func main() {
	var args DumpArgs
	p := arg.MustParse(&args)
	if args.Exponent > 64 {
		p.Fail("exponent must be at most 64")
	}
	mask := ^uint64(0)
	if args.Exponent < 64 {
		mask = uint64(1)<<args.Exponent - 1
	}
	if err := dump(os.Stdin, os.Stdout, hash.DefaultHasher(), mask); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("EOF!")
}
