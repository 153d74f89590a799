package main

import (
	"github.com/go-jdb/jdb/cmd/jdb/cmds"
)

func main() {
	cmds.New().Execute()
}
