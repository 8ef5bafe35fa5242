// Package main is the entry point for the oncallctl operator tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/oncall/cmd/oncallctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
