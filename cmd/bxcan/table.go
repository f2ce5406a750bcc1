package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	bxcan "github.com/samsamfire/gobxcan"
)

type tableCmd struct{}

func (t *tableCmd) Run(ctx *kong.Context) error {
	return printTable(os.Stdout)
}

func printTable(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBIT\tMASK\tLINE\tACKNOWLEDGMENT")
	for _, i := range bxcan.AllInterrupts {
		fmt.Fprintf(w, "%v\t%d\t0x%05x\t%v\t%v\n", i, i.Bit(), uint32(i), i.Line(), i.Acknowledgment())
	}
	return w.Flush()
}

type decodeCmd struct {
	Value string `arg:"" help:"raw register value, e.g. 0x8000d or 42"`
}

func (d *decodeCmd) Run(ctx *kong.Context) error {
	raw, err := strconv.ParseUint(d.Value, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid register value %q : %w", d.Value, err)
	}
	return printDecoded(os.Stdout, uint32(raw))
}

func printDecoded(out io.Writer, raw uint32) error {
	set := bxcan.InterruptsFromBits(raw)
	fmt.Fprintf(out, "raw        0x%08x\n", raw)
	fmt.Fprintf(out, "decoded    0x%08x %v\n", set.Bits(), set)
	if truncated := raw &^ set.Bits(); truncated != 0 {
		fmt.Fprintf(out, "truncated  0x%08x (reserved bits)\n", truncated)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, line := range bxcan.AllLines {
		onLine := set.OnLine(line)
		if onLine.IsEmpty() {
			continue
		}
		fmt.Fprintf(w, "line %v\t%v\n", line, onLine)
	}
	return w.Flush()
}
