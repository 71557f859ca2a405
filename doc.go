// Package patchkit provides functionality for locating and patching code
// inside versioned, third-party executables whose internal layout shifts
// between builds.
//
// APIs are separated into subpackages, and documented accordingly.
// The hook subpackage contains the declarative patching core; memory,
// sigscan, and versiondb implement the collaborators it consumes.
//
// For scripting convenience, "OrExit" functions and methods are provided.
// Any errors encountered by these functions are treated as fatal. In such
// cases, an exit handler function is invoked. Partial patching leaves the
// target executable in an unverified state, so there is deliberately no
// recovery path anywhere in this library.
package patchkit
