package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/pretty"
	"golang.org/x/term"
)

// printJSON writes v as JSON. Terminals get indented, coloured output;
// pipes get one compact line so the output stays scriptable.
func printJSON(w io.Writer, v any) error {
	var data []byte
	switch val := v.(type) {
	case json.RawMessage:
		data = val
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
	}

	if isTerminal(w) {
		data = pretty.Color(pretty.Pretty(data), nil)
	} else {
		data = append(pretty.Ugly(data), '\n')
	}
	_, err := w.Write(data)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
