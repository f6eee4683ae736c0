/*-------------------------------------------------------------------------
 *
 * output.go
 *    Table and JSON rendering for approvals-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/cli/output.go
 *
 *-------------------------------------------------------------------------
 */

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type printer struct {
	w      io.Writer
	format string
}

/* result prints value as JSON, or headers and rows as an aligned table */
func (p *printer) result(value interface{}, headers []string, rows [][]string) error {
	if p.format == formatJSON {
		return p.json(value)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(p.w, "No results")
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (p *printer) message(text string) error {
	if p.format == formatJSON {
		return p.json(map[string]string{"message": text})
	}
	_, err := fmt.Fprintln(p.w, text)
	return err
}

func (p *printer) json(value interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
