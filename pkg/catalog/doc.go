/*
Package catalog keeps named models in a ports.ModelStore.

Models are stored as specs and rebuilt through a registry on every read, so
the catalog never hands out shared mutable state. Read-modify-write cycles go
through Update, which serializes access per model name inside the process and,
when a ports.DistributedLocker is configured, across replicas.
*/
package catalog
