// Package process runs one two-text structuring request end to end.
//
// A [Processor] assigns the request a process ID, opens its diagnostic log,
// structures text A on its own and then structures text B with A's serialized
// result as the labeling example. Either both results are returned or none.
package process
