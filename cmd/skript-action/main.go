// Command skript-action checks that Skript scripts load without errors on the latest Paper server.
package main

import "github.com/oshokin/skript-action/cmd/skript-action/cmd"

func main() {
	cmd.Execute()
}
