// Entrypoint for the cobra CLI; delegates to cmd.Execute.
package main

import "github.com/shadowsim/corengine/cmd"

func main() {
	cmd.Execute()
}
