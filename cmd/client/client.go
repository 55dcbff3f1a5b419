package main

import "github.com/cjdenio/webbridge/pkg/client/cmd"

func main() {
	cmd.Execute()
}
