package main

import (
	"fmt"
	"os"
)

const usage = `usage: graphcalc <command> [flags]

commands:
  serve     run the HTTP API and the idle-session sweeper
  mcp       run the MCP server on stdio
  resolve   execute statements in a fresh session and print the results
  db        migrate, inspect or vacuum the graph database
  install   write ~/.graphcalc/settings.json
  version   print the build version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		runServe(args)
	case "mcp":
		runMCP(args)
	case "resolve":
		runResolve(args)
	case "db":
		runDB(args)
	case "install":
		runInstall(args)
	case "version", "-v", "--version":
		printVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}
