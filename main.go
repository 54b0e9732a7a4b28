package main

import (
	"log"

	"ticket-marketplace/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
