package main

import (
	"github.com/ColonelBlimp/qrq/cmd"
	"github.com/ColonelBlimp/qrq/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
