package main

import "github.com/ryansann/rdmactx/cmd"

func main() {
	cmd.Execute()
}
