//go:build !rp2040

package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

// fakeBoard keeps its halves in named fields so io.Copy cannot reach a
// promoted WriteTo and drain what the test wrote.
type fakeBoard struct {
	r io.Reader
	w bytes.Buffer
}

func (b *fakeBoard) Read(p []byte) (int, error)  { return b.r.Read(p) }
func (b *fakeBoard) Write(p []byte) (int, error) { return b.w.Write(p) }

func TestAttach_SendsLinesWithCRLF(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	board := &fakeBoard{r: pr}

	var out bytes.Buffer
	if err := attach(context.Background(), board, strings.NewReader("read all\nstats\n"), &out); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := board.w.String(); got != "read all\r\nstats\r\n" {
		t.Fatalf("sent %q", got)
	}
}

func TestAttach_CopiesBoardOutput(t *testing.T) {
	board := &fakeBoard{r: strings.NewReader("fresh: 35.7%\n")}
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	if err := attach(context.Background(), board, pr, &out); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if out.String() != "fresh: 35.7%\n" {
		t.Fatalf("out %q", out.String())
	}
}

func TestFakeBoard_OnlyExposesReadWrite(t *testing.T) {
	var rw io.ReadWriter = &fakeBoard{r: strings.NewReader("")}
	if _, ok := rw.(io.WriterTo); ok {
		t.Fatal("fakeBoard implements io.WriterTo; io.Copy would bypass Read")
	}
}
