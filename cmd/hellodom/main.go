//go:build js
// +build js

// Command hellodom is the browser module. Built with GOOS=js GOARCH=wasm it
// appends a greeting paragraph to the page it is loaded into and exits.
package main

import "github.com/soypat/hellodom"

func main() {
	hellodom.Run(hellodom.Browser(), hellodom.Console())
}
