// Replays a recorded attention stream through the decoder and accumulator.
// Useful for checking a capture from a misbehaving backend without a GPU.
//
//	curl -N -d '{"prompt":"hi"}' localhost:8000/api/attention-stream > capture.txt
//	go run ./cmd/replay-stream capture.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/llmxray/internal/annotate"
	"github.com/ppiankov/llmxray/internal/stream"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: replay-stream <capture file|->")
		os.Exit(2)
	}

	var src io.ReadCloser = os.Stdin
	if os.Args[1] != "-" {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "open capture: %v\n", err)
			os.Exit(1)
		}
		src = f
	}

	fmt.Println("=== Attention Stream Replay ===")
	fmt.Println()

	dec := stream.NewDecoder(src)
	acc := annotate.New(annotate.DefaultAmplification)
	ctx := context.Background()

	for {
		event, err := dec.Next(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Println("\n✓ Stream completed")
			break
		}
		if err != nil {
			fmt.Printf("\n✗ Stream failed after %d units: %v\n", acc.Len(), err)
			break
		}

		acc.Append(event)
		top := annotate.TopContext(event.ContextUnits, event.Scores, 3, annotate.DefaultAmplification)
		parts := make([]string, len(top))
		for i, r := range top {
			parts[i] = fmt.Sprintf("%s %.2f", r.Unit, r.Intensity)
		}
		fmt.Printf("  #%-4d %-18q %s\n", acc.Len()-1, event.Unit, strings.Join(parts, "  "))
	}

	state := acc.State()
	var text strings.Builder
	for _, u := range state.Units {
		text.WriteString(u.Unit)
	}

	fmt.Printf("\n  Units:           %d\n", len(state.Units))
	fmt.Printf("  Context units:   %d\n", len(state.ContextUnits))
	fmt.Printf("  Malformed lines: %d\n", dec.Dropped())
	fmt.Printf("  Response:        %s\n", text.String())
}
