// Command client runs a single operation against a running server and prints
// the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"lukas/map8x32/internal/client"
	"lukas/map8x32/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  client [-socket PATH] set <key> <value>
  client [-socket PATH] get <key>
  client [-socket PATH] delete <key>
  client [-socket PATH] list

Keys are 0-255, values are unsigned 32-bit integers.
`)
	os.Exit(2)
}

func main() {
	socketPath := flag.String("socket", config.DefaultSocketPath, "unix socket path of the server")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	c, err := client.Dial(*socketPath)
	if err != nil {
		fatal(err)
	}
	defer c.Close()

	switch args[0] {
	case "set":
		if len(args) != 3 {
			usage()
		}
		if err := c.Set(parseKey(args[1]), parseValue(args[2])); err != nil {
			fatal(err)
		}
		fmt.Println("OK")
	case "get":
		if len(args) != 2 {
			usage()
		}
		values, err := c.Get(parseKey(args[1]))
		if err != nil {
			fatal(err)
		}
		if values == nil {
			fmt.Println("(not found)")
			return
		}
		for _, v := range values {
			fmt.Println(v)
		}
	case "delete":
		if len(args) != 2 {
			usage()
		}
		found, err := c.Delete(parseKey(args[1]))
		if err != nil {
			fatal(err)
		}
		if found {
			fmt.Println("OK")
		} else {
			fmt.Println("(not found)")
		}
	case "list":
		if len(args) != 1 {
			usage()
		}
		keys, err := c.Keys()
		if err != nil {
			fatal(err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
	default:
		usage()
	}
}

func parseKey(s string) uint8 {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		fatal(fmt.Errorf("invalid key %q: %w", s, err))
	}
	return uint8(n)
}

func parseValue(s string) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		fatal(fmt.Errorf("invalid value %q: %w", s, err))
	}
	return uint32(n)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
