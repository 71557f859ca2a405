// Package memory provides views of executable images and the low-level
// write primitives used to install hooks into them.
//
// An Image is a bounds-checked window onto a range of code or data bytes
// located at a known base address. A CodePatcher layers the branch and
// call encodings on top of an Image, borrowing absolute-target slots from
// an Arena when an encoding needs more reach than a rel32 displacement
// offers.
package memory
