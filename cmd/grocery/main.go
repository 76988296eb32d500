// Command grocery serves the grocery item API and manages the list from the
// command line.
package main

import "github.com/mesh-intelligence/grocery/internal/cli"

func main() {
	cli.Execute()
}
