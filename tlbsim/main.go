// Package main is the entry point of the tlbsim command.
package main

import "github.com/sarchlab/tlbsim/tlbsim/cmd"

func main() {
	cmd.Execute()
}
