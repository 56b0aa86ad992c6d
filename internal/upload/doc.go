// Package upload prepares admin image uploads for the image store.
//
// Process is the whole pipeline: Validate checks type, size, filename,
// and pixel dimensions; Optimize scales the image to fit 800x600 and
// re-encodes it as JPEG; the result is wrapped in a data URI, which is
// the payload imagestore.Store.Set accepts. The store only ever receives
// a finished payload.
package upload
