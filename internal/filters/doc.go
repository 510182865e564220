// Package filters merges the filters that apply to a widget into the rule
// tree of its query descriptors.
//
// Apply builds one root "and" group holding, in order:
//
//  1. global filters: catalog entries activated by URL parameters of the
//     form f[-scope]-<hash>=v1,v2
//  2. associated filters supplied by the host, kept only for fields that are
//     columns of the table
//  3. local filters: the range filter (two rules) and the multi-value filter
//     (one "in" rule per field)
//  4. the descriptor's own conditions, as a nested group
//
// The package also carries the helpers that feed the local filters: range
// windows, multi-value selections and multi-value option lists.
package filters
