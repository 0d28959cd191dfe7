// Package buffer provides the bump allocator used to lay out a message
// header, its payload and its interface-id table in one contiguous region.
//
// A Buffer never owns its storage. The transport allocates the region and
// the Buffer only tracks how much of it has been handed out.
package buffer
