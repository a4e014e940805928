package main

import "github.com/khanhnv2901/domaindiag/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
