package main

import (
	"flag"
	"log"
	"os"
	"testing"

	"github.com/fumin/tbham"
	"github.com/fumin/tbham/record"
)

func TestSolve(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, w := range []int{8, 4} {
		if err := solve(dir, tbham.Zigzag, w, 31); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if err := solve(dir, tbham.Square, 4, 31); err == nil {
		t.Fatalf("square ribbon")
	}

	bands, err := record.GatherBands(dir)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(bands) != 2 || bands[0].Name != "4_zigzag" || bands[1].Name != "8_zigzag" {
		t.Fatalf("%#v", bands)
	}
	for i, b := range bands {
		if len(b.K) != 31 || len(b.E[0]) != 4*(i+1) {
			t.Fatalf("%s %d %d", b.Name, len(b.K), len(b.E[0]))
		}
		// Edge states close the gap of zigzag ribbons.
		if gap := b.Gap(0); gap < 0 || gap > 0.5 {
			t.Fatalf("%s gap %f", b.Name, gap)
		}
	}
}

func TestParseWidths(t *testing.T) {
	t.Parallel()
	ws, err := parseWidths("4, 8,12")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(ws) != 3 || ws[0] != 4 || ws[1] != 8 || ws[2] != 12 {
		t.Fatalf("%v", ws)
	}
	if _, err := parseWidths("4,x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	os.Exit(m.Run())
}
