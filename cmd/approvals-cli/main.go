/*-------------------------------------------------------------------------
 *
 * main.go
 *    Entry point for approvals-cli
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/cmd/approvals-cli/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import "github.com/neurondb/NeuronApprovals/internal/cli"

func main() {
	cli.Execute()
}
