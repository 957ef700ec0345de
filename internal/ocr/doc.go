// Package ocr recognises text in page images.
//
// The default build has no engine linked so the module builds without CGO.
// Build with the `tesseract` tag to use Tesseract through gosseract:
//
//	go build -tags=tesseract ./...
package ocr
