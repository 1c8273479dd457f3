// Command disambiguate is the CLI entrypoint for the incremental author
// disambiguation engine: it loads configuration, wires a repository and
// engine, and offers decide/stats/serve subcommands.
package main

func main() {
	Execute()
}
