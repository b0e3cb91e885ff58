package main

import "github.com/lumenshop/storefront/cmd/storefront/cmd"

func main() {
	cmd.Execute()
}
