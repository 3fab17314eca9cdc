// ABOUTME: Generated content returned by the AI backend
// ABOUTME: A response is an ordered list of text and inline image parts
package models

import "strings"

// InlineImage is binary image data returned inline with a response
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Part is one element of a generated response; exactly one field is set
type Part struct {
	Text  string
	Image *InlineImage
}

// Response is the payload of a generate-content or chat call
type Response struct {
	Parts []Part
}

// TextResponse builds a response holding a single text part
func TextResponse(text string) *Response {
	return &Response{Parts: []Part{{Text: text}}}
}

// Text concatenates all text parts
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Parts {
		if p.Image == nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Images returns the inline image parts in order
func (r *Response) Images() []InlineImage {
	if r == nil {
		return nil
	}
	var imgs []InlineImage
	for _, p := range r.Parts {
		if p.Image != nil {
			imgs = append(imgs, *p.Image)
		}
	}
	return imgs
}
