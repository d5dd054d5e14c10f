// Package main is the entry point for the medbot medical chat service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/medbot/cmd/medbot/app"
)

func main() {
	app.NewApp().Run()
}
