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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/txlink/services/txlink/partition"
)

type partitionsOptions struct {
	count bool
	limit int
}

func newPartitionsCmd(c *cli) *cobra.Command {
	opts := &partitionsOptions{}

	cmd := &cobra.Command{
		Use:   "partitions N",
		Short: "List the set partitions of {0..N-1}, or count them",
		Example: `  txlink partitions 3
  txlink partitions 40 --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("N must be a non-negative integer, got %q", args[0])
			}
			if opts.count {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), partition.Bell(n).String())
				return err
			}
			c.logger.Debug("listing partitions", "n", n, "bell", partition.Bell(n).String())
			return listPartitions(cmd.OutOrStdout(), n, opts.limit)
		},
	}

	cmd.Flags().BoolVar(&opts.count, "count", false, "print only the number of partitions (the Bell number)")
	cmd.Flags().IntVar(&opts.limit, "limit", 10000, "stop after this many partitions (0 = no limit)")
	return cmd
}

// listPartitions prints one partition per line in enumeration order, e.g.
// "{0 1} {2}".
func listPartitions(w io.Writer, n, limit int) error {
	e, err := partition.New(n)
	if err != nil {
		return err
	}

	var sb strings.Builder
	printed := 0
	for e.Next() {
		if limit > 0 && printed == limit {
			_, err := fmt.Fprintf(w, "... stopped after %d of %s partitions\n", limit, partition.Bell(n))
			return err
		}
		sb.Reset()
		first := true
		e.ForEachBlock(func(block []uint32) {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteByte('{')
			for i, idx := range block {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strconv.FormatUint(uint64(idx), 10))
			}
			sb.WriteByte('}')
		})
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
		printed++
	}
	return nil
}
