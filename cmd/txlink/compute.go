// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/txlink/pkg/ux"
	"github.com/AleutianAI/txlink/services/txlink/candidate"
)

type computeOptions struct {
	inputs    int
	strategy  string
	workers   int
	inclusive bool
	output    string
	timeout   time.Duration
}

// computeReport is the json/yaml output of the compute command.
type computeReport struct {
	Values            []uint64   `json:"values" yaml:"values,flow"`
	InputLen          int        `json:"input_len" yaml:"input_len"`
	Candidates        [][]uint32 `json:"candidates" yaml:"candidates,flow"`
	Count             int        `json:"count" yaml:"count"`
	PartitionsVisited uint64     `json:"partitions_visited" yaml:"partitions_visited"`
	Strategy          string     `json:"strategy" yaml:"strategy"`
	Boundary          string     `json:"boundary" yaml:"boundary"`
	Workers           int        `json:"workers" yaml:"workers"`
	DurationMs        int64      `json:"duration_ms" yaml:"duration_ms"`
}

func newComputeCmd(c *cli) *cobra.Command {
	opts := &computeOptions{}

	cmd := &cobra.Command{
		Use:   "compute --inputs N VALUE...",
		Short: "Compute candidates for a value sequence",
		Long: `Compute every grouping of values that contains at least one input and one
output and whose input sum equals its output sum. The first --inputs values
are inputs, the rest are outputs.`,
		Example: `  txlink compute --inputs 3 100 100 100 100 300 100
  txlink compute --inputs 1 --inclusive --output json 300 200 200 300`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd, c, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.inputs, "inputs", "i", 0, "number of leading values that are inputs")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "enumeration strategy: partitions or subsets (default from config)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel workers (default from config)")
	cmd.Flags().BoolVar(&opts.inclusive, "inclusive", false, "count index --inputs as an input as well")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table, json, yaml")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "abort after this long (0 = no limit)")
	_ = cmd.MarkFlagRequired("inputs")
	return cmd
}

func runCompute(cmd *cobra.Command, c *cli, opts *computeOptions, args []string) error {
	values, err := parseValues(args)
	if err != nil {
		return err
	}

	switch opts.output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("--output must be table, json or yaml, got %q", opts.output)
	}

	cfg, err := c.cfg.ComputerConfig()
	if err != nil {
		return err
	}
	if opts.strategy != "" {
		if cfg.Strategy, err = candidate.ParseStrategy(opts.strategy); err != nil {
			return err
		}
	}
	if opts.workers != 0 {
		cfg.Workers = opts.workers
	}
	if cmd.Flags().Changed("inclusive") {
		cfg.Boundary = candidate.BoundaryExclusive
		if opts.inclusive {
			cfg.Boundary = candidate.BoundaryInclusive
		}
	}

	computer, err := candidate.NewComputer(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	c.logger.Debug("computing candidates",
		"values", len(values),
		"input_len", opts.inputs,
		"strategy", string(cfg.Strategy),
		"workers", cfg.Workers)

	out, err := computer.Compute(ctx, values, opts.inputs)
	if err != nil {
		return err
	}

	report := computeReport{
		Values:            values,
		InputLen:          opts.inputs,
		Candidates:        out.Candidates.Candidates(),
		Count:             out.Candidates.Len(),
		PartitionsVisited: out.Visited,
		Strategy:          string(out.Strategy),
		Boundary:          cfg.Boundary.String(),
		Workers:           out.Workers,
		DurationMs:        out.Duration.Milliseconds(),
	}
	return writeReport(cmd.OutOrStdout(), opts.output, report, computer.Config().Boundary)
}

// parseValues parses unsigned decimal values. Commas are accepted as
// separators as well as whitespace.
func parseValues(args []string) ([]uint64, error) {
	var values []uint64
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: must be an unsigned integer", field)
			}
			values = append(values, v)
		}
	}
	return values, nil
}

func writeReport(w io.Writer, format string, report computeReport, boundary candidate.Boundary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeTable(w, report, boundary)
		return nil
	}
}

func writeTable(w io.Writer, report computeReport, boundary candidate.Boundary) {
	p := ux.NewPrinter(w, ux.DetectMode(w))
	p.Title(fmt.Sprintf("%d candidates", report.Count))

	isInput := func(i uint32) bool {
		if boundary == candidate.BoundaryInclusive {
			return int(i) <= report.InputLen
		}
		return int(i) < report.InputLen
	}

	rows := make([][]string, 0, len(report.Candidates))
	for n, block := range report.Candidates {
		var ins, outs []string
		sum := new(big.Int)
		for _, i := range block {
			if isInput(i) {
				ins = append(ins, strconv.FormatUint(uint64(i), 10))
				sum.Add(sum, new(big.Int).SetUint64(report.Values[i]))
			} else {
				outs = append(outs, strconv.FormatUint(uint64(i), 10))
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(n + 1),
			strings.Join(ins, ","),
			strings.Join(outs, ","),
			sum.String(),
		})
	}
	p.Table([]string{"#", "inputs", "outputs", "sum"}, rows)

	p.KeyValue("candidates", report.Count)
	p.KeyValue("strategy", report.Strategy)
	p.KeyValue("boundary", report.Boundary)
	p.KeyValue("visited", report.PartitionsVisited)
	p.KeyValue("duration", time.Duration(report.DurationMs)*time.Millisecond)
}
