// Package headers decodes the edge platform's diagnostic response headers.
//
// Two headers are understood:
//
//   - the version header ("x-0-version"), whose value is "<name> <version>";
//     the second whitespace separated token is reported.
//   - the timing header ("x-0-t"), a comma separated list of key=value pairs;
//     only keys ending in "t" are kept and their values must fit a uint16.
//
// Decoders never panic. A missing header is reported as absence (nil, nil).
// A present but malformed header yields ErrMalformedHeader; what the caller
// does with it is governed by Policy.
package headers
