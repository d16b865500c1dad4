/*
Package session serializes concurrent access to stored exam state.

A Manager wraps a StateStore and runs every load, save and delete under a
per-session lock, so a turn's read-modify-write cycle is atomic. With a
DistributedLocker configured the same guarantee extends across replicas
sharing one store.
*/
package session
