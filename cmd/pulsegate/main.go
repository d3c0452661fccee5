// Package main is the entry point for the PULSE gateway.
package main

func main() {
	Execute()
}
