package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

func main() {
	jsonOut := flag.Bool("json", false, "emit the full result as JSON")
	flag.Parse()

	var source []byte
	var err error
	switch flag.NArg() {
	case 0:
		source, err = io.ReadAll(os.Stdin)
	case 1:
		source, err = os.ReadFile(flag.Arg(0))
	default:
		fmt.Fprintln(os.Stderr, "usage: terrasect [-json] [script.tsect]")
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("read source: %v", err)
	}

	app := NewApp()
	result := app.Evaluate(string(source))

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("encode result: %v", err)
		}
		if len(result.Errors) > 0 {
			os.Exit(1)
		}
		return
	}

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "line %d: %s\n", e.Line, e.Message)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}

	for _, s := range result.Sections {
		label := s.Label
		if label == "" {
			label = fmt.Sprintf("section %d", s.ID)
		}
		fmt.Printf("%s: %d profiles, %d walls, %d intersections\n",
			label, len(s.Profiles), len(s.Walls), len(s.Intersections))
		for _, w := range s.Walls {
			fmt.Printf("  %s: %d triangles, %d bands, base %.2f\n",
				w.Label, w.Triangles, len(w.Bands), w.Base)
		}
		for _, c := range s.Intersections {
			if c.Reason != "" {
				fmt.Printf("  walls %d/%d: %s\n", c.WallA, c.WallB, c.Reason)
				continue
			}
			fmt.Printf("  walls %d/%d: curve of %d points, length %.2f\n",
				c.WallA, c.WallB, len(c.Points), c.Length)
		}
	}
	for _, c := range result.CrossSections {
		if c.Reason != "" {
			fmt.Printf("sections %d/%d: %s\n", c.WallA, c.WallB, c.Reason)
			continue
		}
		fmt.Printf("sections %d/%d: curve of %d points, length %.2f\n",
			c.WallA, c.WallB, len(c.Points), c.Length)
	}
}
