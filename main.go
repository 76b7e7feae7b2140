package main

import "github.com/gitpod-io/agentbuild/cmd"

func main() {
	cmd.Execute()
}
