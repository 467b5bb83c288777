package main

import "github.com/frahmantamala/receipt-ledger/cmd"

func main() {
	cmd.Execute()
}
