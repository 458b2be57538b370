// Package section defines the values exchanged between the structuring
// stages: the labeled [Unit], the ordered [Result] produced for one input
// text, the [CombinedResponse] returned to callers, and the [Error] kinds
// every stage reports failures with.
package section
