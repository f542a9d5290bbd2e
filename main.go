// Command segdl is a segmented HTTP/HLS download manager with a
// scheduler, a durable SQLite task store, and a daemon mode that other
// invocations (and the browser extension) can hand work to over a local
// HTTP bridge.
package main

import "github.com/nahidn4p/segdl/cmd"

func main() {
	cmd.Execute()
}
