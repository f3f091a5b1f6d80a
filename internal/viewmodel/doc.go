// Package viewmodel holds presentation state for the opportunity screens.
//
// The filtered view is never cached: List.FilteredSorted recomputes it from
// the current collection, filter and window on every call via FilterSort.
package viewmodel
