// Package observability defines the logging and metrics interfaces used
// throughout textstruct, together with the attribute names every component
// records observations under.
//
// The central entry point is [Provider], which composes [Logger] and
// [Metrics] into a single injectable dependency. Components receive a
// Provider explicitly at construction time; request-scoped code can also
// carry one through a [context.Context] with [ContextWithObserver] and
// retrieve it with [ObserverFromContext] or [FromContextOr]; [With] scopes a
// provider to attributes such as the process ID. [Nop] is a Provider that discards
// everything.
package observability
