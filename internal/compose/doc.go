// Package compose plans final video compositions. It maps a set of media
// inputs to a deterministic, ordered list of operations (scale, overlay,
// gain, mix) plus the stream each encoder pass delivers. Rendering
// operations into encoder arguments and running processes belong to the
// encode service.
package compose
