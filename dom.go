//go:build js
// +build js

package hellodom

import (
	"errors"
	"fmt"
	"syscall/js"
)

// Browser returns the Host backed by the javascript global object.
func Browser() Host { return browser{} }

// Console returns a Sink writing to the browser's console.log.
func Console() Sink {
	return SinkFunc(func(msg string) {
		js.Global().Get("console").Call("log", msg)
	})
}

type browser struct{}

func (browser) Window() (Window, bool) {
	w := js.Global().Get("window")
	if !w.Truthy() {
		return nil, false
	}
	return jsWindow{w}, true
}

type jsWindow struct{ v js.Value }

func (w jsWindow) Document() (Document, bool) {
	doc := w.v.Get("document")
	if !doc.Truthy() {
		return nil, false
	}
	return jsDocument{doc}, true
}

type jsDocument struct{ v js.Value }

func (d jsDocument) Body() (Node, bool) {
	body := d.v.Get("body")
	if !body.Truthy() {
		return nil, false
	}
	return jsElement{body}, true
}

// CreateElement calls document.createElement. syscall/js reports a thrown
// DOMException as a js.Error panic, which is returned here as an error.
func (d jsDocument) CreateElement(tag string) (n Node, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		jsErr, ok := r.(js.Error)
		if !ok {
			panic(r)
		}
		n, err = nil, fmt.Errorf("createElement %q: %w", tag, jsErr)
	}()
	elem := d.v.Call("createElement", tag)
	if !elem.Truthy() {
		return nil, fmt.Errorf("createElement %q returned %s", tag, elem.Type())
	}
	return jsElement{elem}, nil
}

type jsElement struct{ v js.Value }

func (e jsElement) SetInnerHTML(html string) { e.v.Set("innerHTML", html) }

func (e jsElement) InnerHTML() string { return e.v.Get("innerHTML").String() }

func (e jsElement) AppendChild(child Node) {
	c, ok := child.(jsElement)
	if !ok {
		panic(errors.New("hellodom: AppendChild of a node not created by Browser"))
	}
	e.v.Call("appendChild", c.v)
}
