// Package document turns a PDF into the page images sent to vision models.
//
// The Extractor validates the file, counts its pages with pdfcpu, renders
// every page through a Rasterizer (poppler's pdftoppm by default) into a
// temporary directory, and returns the pages as base64 JPEG strings in page
// order. Failures are reported as *ExtractionError, which aborts a review run.
package document
