package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarmatch/disambiguate/internal/mention"
	"github.com/scholarmatch/disambiguate/internal/normalize"
)

var decideInputPath string

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one mention through the disambiguation pipeline",
	Long: `decide reads one wire-shaped mention from --input or stdin, runs it
through the configured engine, and prints the resulting DecisionResult as JSON.`,
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().StringVarP(&decideInputPath, "input", "i", "", "path to a mention JSON file (defaults to stdin)")
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, _, closeRepo, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	var r io.Reader = os.Stdin
	if decideInputPath != "" {
		f, err := os.Open(decideInputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read mention: %w", err)
	}

	wire, err := mention.ParseJSON(data)
	if err != nil {
		return fmt.Errorf("parse mention: %w", err)
	}

	in := wire.ToInput()
	in.ORCID = normalize.CanonicalizeORCID(in.ORCID)
	m := mention.New(in)

	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
