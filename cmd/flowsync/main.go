// cmd/flowsync/main.go
package main

import (
	"flowsync/internal/app"
	"flowsync/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
