package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"
)

// printJSON writes raw indented. Empty responses print nothing.
func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	buf.WriteByte('\n')

	_, err := buf.WriteTo(w)
	return err
}

// readPayload reads a JSON document from path, or stdin for "-".
func readPayload(path string) (json.RawMessage, error) {
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
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("payload %s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

func parseID(cmd *cli.Command) (int64, error) {
	if cmd.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one ID argument, got %d", cmd.Args().Len())
	}
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q: %w", cmd.Args().First(), err)
	}
	return id, nil
}

func idAndPayload(cmd *cli.Command) (int64, json.RawMessage, error) {
	id, err := parseID(cmd)
	if err != nil {
		return 0, nil, err
	}
	payload, err := readPayload(cmd.String("file"))
	if err != nil {
		return 0, nil, err
	}
	return id, payload, nil
}
