package webview

import (
	"strings"
	"sync"
)

// DOM is a lightweight document the runtime exposes as document.querySelector
type DOM struct {
	root    *Element
	changes []DOMChange
	mu      sync.RWMutex
}

// Element represents a DOM element
type Element struct {
	TagName    string
	ID         string
	ClassName  string
	Attributes map[string]string
	Children   []*Element
	Parent     *Element
}

// NewDOM creates an empty document
func NewDOM() *DOM {
	return &DOM{
		root: &Element{
			TagName:    "document",
			Attributes: make(map[string]string),
		},
	}
}

// NewElement creates a detached element
func NewElement(tag, id, className string) *Element {
	return &Element{
		TagName:    tag,
		ID:         id,
		ClassName:  className,
		Attributes: make(map[string]string),
	}
}

// Append adds elem under the document root
func (d *DOM) Append(elem *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	elem.Parent = d.root
	d.root.Children = append(d.root.Children, elem)
}

// Query finds elements by #id, .class or tag name
func (d *DOM) Query(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case strings.HasPrefix(selector, "#"):
		if elem := findByID(d.root, strings.TrimPrefix(selector, "#")); elem != nil {
			return []*Element{elem}
		}
		return nil
	case strings.HasPrefix(selector, "."):
		return findByClass(d.root, strings.TrimPrefix(selector, "."))
	default:
		return findByTag(d.root, selector)
	}
}

// Attribute reads an attribute of elem
func (d *DOM) Attribute(elem *Element, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := elem.Attributes[name]
	return value, ok
}

// SetAttribute writes an attribute of elem and records the change
func (d *DOM) SetAttribute(elem *Element, selector, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	elem.Attributes[name] = value
	d.changes = append(d.changes, DOMChange{Selector: selector, Property: name, Value: value})
}

// Changes returns accumulated attribute writes
func (d *DOM) Changes() []DOMChange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DOMChange(nil), d.changes...)
}

func findByID(elem *Element, id string) *Element {
	if id == "" {
		return nil
	}
	if elem.ID == id {
		return elem
	}
	for _, child := range elem.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(elem *Element, class string) []*Element {
	var result []*Element
	for _, c := range strings.Fields(elem.ClassName) {
		if c == class {
			result = append(result, elem)
			break
		}
	}
	for _, child := range elem.Children {
		result = append(result, findByClass(child, class)...)
	}
	return result
}

func findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	if strings.EqualFold(elem.TagName, tag) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, findByTag(child, tag)...)
	}
	return result
}
