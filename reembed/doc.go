// Package reembed rewrites the vectors of every chunk stored in a data
// source's partition using the currently configured embedder.
//
// It is meant to be run after switching embedding models. Chunks are read in
// ID order a batch at a time, embedded with retry, normalized and written
// back. A checkpoint records the last chunk handled so an interrupted run can
// resume where it stopped.
package reembed
