package domain

// KeyPrefix namespaces all keys in the storage backend.
const KeyPrefix = "grad:"
