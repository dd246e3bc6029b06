package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) print(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	if c.cfg.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	// Round-trip through JSON so YAML keys follow the wire names.
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// errReported marks failures the user has already seen as a toast.
var errReported = errors.New("request failed")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// sliceError prefers the normalized message the slice recorded.
func sliceError(message string, err error) error {
	if message != "" {
		return errors.New(message)
	}
	return err
}
