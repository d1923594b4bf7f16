// Package source streams the operations of a tape-language program one byte
// at a time. Only the eight operator characters are significant; every other
// byte, newlines and comments included, is skipped.
//
// The scanner never buffers the whole program. It tracks line and column so
// that structural errors can point at the offending bracket.
package source
