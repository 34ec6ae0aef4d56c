// Command migrate runs and checks SQL schema migrations.
package main

import "github.com/aqasim81/safe-migrate/pkg/safemigrate"

func main() {
	safemigrate.Execute()
}
