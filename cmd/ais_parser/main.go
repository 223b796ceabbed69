// Command-line entry point for the AIS parser.
//
// Input format
// ------------
// Every command reads text lines. A line may carry a leading unix timestamp
// and any prefix noise; the first "!xxVDM" or "!xxVDO" sentence on the line
// is used and everything else is ignored:
//
//	!AIVDM,1,1,,A,15NaEPPP01oR`R6CC?<j@gvr0<1C,0*1F
//	1700000000.5 !AIVDM,2,1,3,B,55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53,0*3E
//
// Multi-fragment sentences are reassembled per radio channel.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"ais_parser/internal/ais"
	"ais_parser/internal/checksum"
	"ais_parser/internal/extractor"
	"ais_parser/internal/layout"
	"ais_parser/internal/registry"
)

// DecodeOut is one decoded sentence in the decode output.
type DecodeOut struct {
	*extractor.Record
	Trace []registry.FieldTrace `json:"trace,omitempty"`
}

type Stats struct {
	ais.ParserStats
	ChecksumFailures int
	Emitted          int
	Unknown          int
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "ais_parser - commands:")
	fmt.Fprintln(w, "  decode  - decode AIVDM/AIVDO lines and output JSON")
	fmt.Fprintln(w, "  stream  - run the ingest pipeline from a YAML config")
	fmt.Fprintln(w, "  fields  - print the message field layouts")
	fmt.Fprintln(w, "  check   - verify NMEA checksums line by line")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ais_parser decode -input capture.nmea [-output out.json] [-pretty] [-all] [-stats] [-trace] [-layout file] [-verify-checksum]")
	fmt.Fprintln(w, "  ais_parser stream -config ais.yaml")
	fmt.Fprintln(w, "  ais_parser fields [-type N] [-layout file]")
	fmt.Fprintln(w, "  ais_parser check -input capture.nmea")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "decode":
		runDecode(os.Args[2:])
	case "stream":
		runStream(os.Args[2:])
	case "fields":
		runFields(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// loadRegistry builds the field registry from a layout file, or from the
// built-in layout when path is empty.
func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.NewDefault()
	}
	table, err := layout.Load(path)
	if err != nil {
		return nil, err
	}
	return registry.New(table)
}

func openInput(path string) (io.Reader, func()) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
		os.Exit(1)
	}
	return f, func() { _ = f.Close() }
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inPath := fs.String("input", "", "Input file (default: stdin)")
	outPath := fs.String("output", "", "Output JSON file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	includeAll := fs.Bool("all", false, "Include sentences whose message type has no layout")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	trace := fs.Bool("trace", false, "Include the raw bits of every field")
	layoutPath := fs.String("layout", "", "Layout JSON file (default: built-in)")
	verify := fs.Bool("verify-checksum", false, "Skip lines with a bad NMEA checksum")
	_ = fs.Parse(args)

	reg, err := loadRegistry(*layoutPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load layout: %v\n", err)
		os.Exit(1)
	}

	r, closeIn := openInput(*inPath)
	defer closeIn()

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	parser := ais.NewParser()
	out := make([]DecodeOut, 0, 1024)
	st := &Stats{}

	for scanner.Scan() {
		line := scanner.Text()
		if *verify {
			if res, ok := checksum.Check(ais.SentenceText(line)); ok && !res.Valid {
				st.ChecksumFailures++
				continue
			}
		}

		if err := parser.Add(line); err != nil && *showStats {
			fmt.Fprintf(os.Stderr, "skipped: %v: %s\n", err, strings.TrimSpace(line))
		}

		for parser.HasSentence() {
			s, _ := parser.NextSentence()
			rec, err := extractor.Extract(s, reg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Extract error: %v\n", err)
				continue
			}
			if rec.Description == "" {
				st.Unknown++
				if !*includeAll {
					continue
				}
			}

			o := DecodeOut{Record: rec}
			if *trace && rec.Description != "" {
				o.Trace, _ = reg.Trace(rec.TypeID, s.Payload)
			}
			out = append(out, o)
			st.Emitted++
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
		os.Exit(1)
	}

	var wout io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		wout = f
	}

	enc, err := marshalJSON(out, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
		os.Exit(1)
	}
	_, _ = wout.Write(enc)
	if wout == os.Stdout {
		_, _ = wout.Write([]byte("\n"))
	}

	if *showStats {
		st.ParserStats = parser.Stats()
		fmt.Fprintf(os.Stderr,
			"stats: lines=%d matched=%d skipped=%d errors=%d checksum_failures=%d fragments=%d sentences=%d resets=%d orphans=%d emitted=%d unknown_type=%d\n",
			st.Lines, st.Matched, st.Skipped, st.Errors, st.ChecksumFailures, st.Fragments,
			st.Sentences, st.Resets, st.Orphans, st.Emitted, st.Unknown,
		)
	}
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func runFields(args []string) {
	fs := flag.NewFlagSet("fields", flag.ExitOnError)
	typeID := fs.Int("type", 0, "Only print this message type")
	layoutPath := fs.String("layout", "", "Layout JSON file (default: built-in)")
	_ = fs.Parse(args)

	reg, err := loadRegistry(*layoutPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load layout: %v\n", err)
		os.Exit(1)
	}

	ids := reg.Types()
	if *typeID != 0 {
		ids = []int{*typeID}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, id := range ids {
		d, err := reg.Decoder(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unknown message type: %d\n", id)
			os.Exit(1)
		}
		fmt.Fprintf(tw, "Type %d: %s\n", id, d.Description)
		fmt.Fprintln(tw, "  FIELD\tBITS\tWIDTH\tKIND")
		for _, f := range d.Fields() {
			fmt.Fprintf(tw, "  %s\t%d-%d\t%d\t%s\n", f.Name, f.Start, f.End-1, f.Width(), f.Kind)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
	fmt.Printf("%d types, %d fields\n", len(reg.Types()), reg.FieldCount())
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	inPath := fs.String("input", "", "Input file (default: stdin)")
	quiet := fs.Bool("quiet", false, "Only print lines that fail")
	_ = fs.Parse(args)

	r, closeIn := openInput(*inPath)
	defer closeIn()

	var valid, invalid, missing int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Prefer the AIS sentence so noise before it is not checksummed.
		text := line
		if sentence := ais.SentenceText(line); sentence != "" {
			text = sentence
		}
		res, ok := checksum.Check(text)
		switch {
		case !ok:
			missing++
			if !*quiet {
				fmt.Printf("NONE  %s\n", line)
			}
		case res.Valid:
			valid++
			if !*quiet {
				fmt.Printf("OK    %s\n", res.Sentence)
			}
		default:
			invalid++
			fmt.Printf("BAD   %s (expected %s, computed %s)\n",
				res.Sentence, checksum.Format(res.Expected), checksum.Format(res.Computed))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d valid, %d invalid, %d without checksum\n", valid, invalid, missing)
	if invalid > 0 {
		os.Exit(1)
	}
}
