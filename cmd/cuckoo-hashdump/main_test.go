package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kwertop/cuckoo/hash"
)

func TestDescribe(t *testing.T) {
	rows := describe(hash.DefaultHasher(), []byte("h2"), 7)
	if len(rows) != 8 {
		t.Fatalf("8 rows should be described, instead found %v", len(rows))
	}
	expected := map[string]string{
		"index hash (H0)":      "28561d8e66b47a59",
		"fingerprint hash":     "63277aae4e47929b",
		"H0 (masked)":          "0000000000000001",
		"H1 (derived, masked)": "0000000000000002",
		"H0 (recovered)":       "0000000000000001",
	}
	for _, row := range rows {
		if want, ok := expected[row[0].(string)]; ok && row[1] != want {
			t.Errorf("%v should be %v, instead found %v", row[0], want, row[1])
		}
	}
}

func TestDump(t *testing.T) {
	var out bytes.Buffer
	if err := dump(strings.NewReader("h2\nfoo\n"), &out, hash.DefaultHasher(), 7); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"28561d8e66b47a59", "63277aae4e47929b", "344efde747462c80"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output should contain %v, instead found\n%s", want, out.String())
		}
	}
}

func TestDumpTrimsKeys(t *testing.T) {
	var out bytes.Buffer
	if err := dump(strings.NewReader("  h2\t \n"), &out, hash.DefaultHasher(), 7); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "28561d8e66b47a59") {
		t.Errorf("padded h2 should hash like h2, instead found\n%s", out.String())
	}
}
