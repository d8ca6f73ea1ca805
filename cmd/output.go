package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/tidwall/jsonc"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONFile decodes a JSON file into v. Comments and trailing commas
// are allowed; "-" reads stdin.
func readJSONFile(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonc.ToJSON(data), v)
}
