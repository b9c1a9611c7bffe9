// Command testworker is a child worker for host tests. It serves sessions
// with the scripted engine, or misbehaves on request.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wharflab/tscheck/internal/engine"
	"github.com/wharflab/tscheck/internal/host"
	"github.com/wharflab/tscheck/internal/testutil"
)

func main() {
	mode := flag.String("mode", "serve", "serve, crash or garbage")
	flag.Parse()

	engine.Register(testutil.ScriptedName, testutil.ScriptedFactory)

	switch *mode {
	case "crash":
		fmt.Fprintln(os.Stderr, "fatal: heap out of memory")
		os.Exit(3)
	case "garbage":
		_, _ = os.Stdout.Write([]byte{0xc1, 0xc1, 0xc1})
		time.Sleep(time.Minute)
		return
	}

	if err := host.Serve(context.Background(), os.Stdin, os.Stdout, nil, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
