package main

import "github.com/hitoshi/pushmyself/internal/app"

func main() {
	app.Execute()
}
