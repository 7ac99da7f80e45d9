package main

import (
	"os"

	"github.com/jhoicas/facturacion-electronica/cmd/einvoice/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
