// Package types defines the habit record, its variants, the tabular
// backend protocol, operation results, configuration, and the error
// taxonomy shared by every layer of the habit store.
package types
