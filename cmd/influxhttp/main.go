package main

import "github.com/peteraglen/influxdb-transport-go/internal/cli"

func main() {
	cli.Execute()
}
