// Package server answers envelope messages framed over stream connections.
//
// Every connection gets its own dispatch stack. A request that fails header
// validation, or that its handler rejects as bad, closes the connection
// that sent it.
package server
