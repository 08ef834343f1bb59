// Package hellodom is a browser module that greets from the page body, plus
// the host-side handler that compiles and serves it.
package hellodom

import "errors"

const (
	// ElementTag is the tag of the element Run appends to the body.
	ElementTag = "p"
	// Greeting is the content of the appended element.
	Greeting = "Hello from Rust!"
	// DoneMessage is logged once the element is in the document.
	DoneMessage = "Hello World!!!"
)

// Lookup failures of Run. Their messages are the diagnostics written to the sink.
var (
	ErrMissingContext  = errors.New("no global `window` exists")
	ErrMissingDocument = errors.New("should have a document on window")
	ErrMissingBody     = errors.New("document should have a body")
	ErrElementCreation = errors.New("failed creating element `p` inside document")
)

// Host is the entry point to the page. In the browser it is backed by the
// global object, see Browser.
type Host interface {
	// Window returns the global browsing context, if there is one.
	Window() (Window, bool)
}

// Window is a browsing context.
type Window interface {
	Document() (Document, bool)
}

// Document is the page's document.
type Document interface {
	Body() (Node, bool)
	// CreateElement creates a detached element. The host may reject the tag.
	CreateElement(tag string) (Node, error)
}

// Node is an element of the document tree.
type Node interface {
	SetInnerHTML(html string)
	InnerHTML() string
	AppendChild(child Node)
}

// Sink receives diagnostic lines. Writes are assumed to succeed.
type Sink interface {
	Log(msg string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(msg string)

// Log calls f(msg).
func (f SinkFunc) Log(msg string) { f(msg) }

// Run appends a <p> holding Greeting to the document body and logs
// DoneMessage. If any lookup along the way fails, Run logs the matching
// diagnostic and returns without touching the page.
//
// Run keeps no state between calls: each call repeats the lookups and
// appends a new element.
func Run(host Host, sink Sink) {
	if err := appendGreeting(host, sink); err != nil {
		sink.Log(err.Error())
		return
	}
	sink.Log(DoneMessage)
}

func appendGreeting(host Host, sink Sink) error {
	window, ok := host.Window()
	if !ok {
		return ErrMissingContext
	}
	document, ok := window.Document()
	if !ok {
		return ErrMissingDocument
	}
	body, ok := document.Body()
	if !ok {
		return ErrMissingBody
	}
	element, err := document.CreateElement(ElementTag)
	if err != nil {
		return ErrElementCreation
	}
	element.SetInnerHTML(Greeting)
	sink.Log(element.InnerHTML())
	body.AppendChild(element)
	return nil
}
