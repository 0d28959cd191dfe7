// Package associated resolves associated interface endpoints to numeric
// interface ids before a message leaves the process, and back into local
// endpoint handles once it arrives.
//
// A Group pair models the two ends of one connection. Ids handed out by the
// side created first have the namespace bit clear; ids from the other side
// have it set, so both sides can allocate without coordination.
package associated
