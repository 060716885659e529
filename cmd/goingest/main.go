package main

import "github.com/dbsmedya/goingest/cmd/goingest/cmd"

func main() {
	cmd.Execute()
}
