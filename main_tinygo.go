//go:build tinygo

package main

import (
	"wcet/app"
	"wcet/hal"
)

func main() {
	app.Run(hal.New())
}
